package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sampleplugin/internal/blob"
	"sampleplugin/internal/itemstore"
	"sampleplugin/pkg/pluginapi"
	"sampleplugin/plugins/sample"
)

func (a *app) newImportCmd() *cobra.Command {
	var (
		id    uint64
		xml   string
		role  string
		query string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Post an xml document to the plugin import route",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, s *session, _ []string) error {
			p, err := s.plugin()
			if err != nil {
				return err
			}
			user := pluginapi.NewItem()
			if role != "" {
				itemstore.GrantRole(&user, role)
			}
			if !cmd.Flags().Changed("query") {
				query = "id=" + strconv.FormatUint(id, 10)
			}
			posted := pluginapi.NewItem()
			posted.SetStr("xml", xml)

			resp := p.RouteURLPostHook(cmd.Context(), s.api, sample.ImportHandle, &user, query, posted)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", resp, resp.HTTPStatus())
			if resp != pluginapi.WebResponseOK {
				return fmt.Errorf("import rejected: %s", resp)
			}
			return nil
		}),
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "id of the config item to write")
	cmd.Flags().StringVar(&xml, "xml", "", "xml document to store")
	cmd.Flags().StringVar(&role, "role", "admin", "role granted to the calling user; empty for none")
	cmd.Flags().StringVar(&query, "query", "", "raw query string; overrides --id")
	return cmd
}

func (a *app) newPostEditCmd() *cobra.Command {
	var (
		collection string
		id         uint64
		del        bool
	)
	cmd := &cobra.Command{
		Use:   "post-edit",
		Short: "Fire the post-edit hook for an item",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, s *session, _ []string) error {
			p, err := s.plugin()
			if err != nil {
				return err
			}
			p.ItemPostEditHook(cmd.Context(), s.api, sample.PostEditHandle, collection, id, del)
			return nil
		}),
	}
	cmd.Flags().StringVar(&collection, "collection", "config", "collection of the edited item")
	cmd.Flags().Uint64Var(&id, "id", 0, "id of the edited item")
	cmd.Flags().BoolVar(&del, "delete", false, "mark the edit as a delete")
	return cmd
}

func (a *app) newGetCmd() *cobra.Command {
	var (
		collection string
		id         uint64
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a stored item as JSON",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, s *session, _ []string) error {
			item, ok, err := s.api.GetItem(cmd.Context(), collection, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("item %s/%d not found", collection, id)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(item)
		}),
	}
	cmd.Flags().StringVar(&collection, "collection", "config", "collection to read from")
	cmd.Flags().Uint64Var(&id, "id", 0, "item id")
	return cmd
}

func (a *app) newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Archive or restore the item store through the blob store",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "save KEY",
		Short: "Export every collection to a blob",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, s *session, args []string) error {
			ctx := cmd.Context()
			store, err := s.blobs(ctx)
			if err != nil {
				return err
			}
			snap, err := itemstore.Export(ctx, s.backend)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := snap.Encode(&buf); err != nil {
				return err
			}
			count := 0
			for _, items := range snap.Collections {
				count += len(items)
			}
			info, err := store.Put(ctx, args[0], &buf, blob.PutOptions{
				ContentType: "application/json",
				Metadata:    map[string]string{"items": strconv.Itoa(count)},
			})
			if err != nil {
				return err
			}
			s.logger.Info("snapshot saved", "key", info.Key, "items", count, "size", info.Size)
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d items to %s\n", count, info.Key)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore KEY",
		Short: "Import a snapshot blob into the item store",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, s *session, args []string) error {
			ctx := cmd.Context()
			store, err := s.blobs(ctx)
			if err != nil {
				return err
			}
			_, rc, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			defer rc.Close()
			snap, err := itemstore.DecodeSnapshot(rc)
			if err != nil {
				return err
			}
			n, err := itemstore.Import(ctx, s.backend, snap)
			if err != nil {
				return err
			}
			s.logger.Info("snapshot restored", "key", args[0], "items", n)
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d items from %s\n", n, args[0])
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list [PREFIX]",
		Short: "List snapshot blobs, optionally under a key prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, s *session, args []string) error {
			ctx := cmd.Context()
			store, err := s.blobs(ctx)
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			infos, err := store.List(ctx, prefix)
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", info.Key, info.Size, info.LastModified.UTC().Format(time.RFC3339))
			}
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a snapshot blob",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, s *session, args []string) error {
			ctx := cmd.Context()
			store, err := s.blobs(ctx)
			if err != nil {
				return err
			}
			ok, err := store.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", blob.ErrNotFound, args[0])
			}
			s.logger.Info("snapshot deleted", "key", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	})
	return cmd
}

func (a *app) newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List registered plugins",
		Args:  cobra.NoArgs,
		RunE: a.withSession(func(cmd *cobra.Command, s *session, _ []string) error {
			for _, md := range s.pool.Metadata() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", md.Name, md.Version)
			}
			return nil
		}),
	}
}
