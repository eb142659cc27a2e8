// Package plugins hosts plugin implementation subpackages. It holds no
// runtime code; the import guard test that lives alongside it checks that
// every plugin depends on the host only through pkg/pluginapi.
package plugins
