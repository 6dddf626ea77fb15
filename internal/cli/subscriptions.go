package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/readhubx/internal/model"
	"github.com/bryan-buckman/readhubx/internal/opml"
)

func (e *env) subscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <id> <name> <type>",
		Short: "Follow an entity (type: company, product, person or tag)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, subs, err := e.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			item := model.Subscription{ID: args[0], Name: args[1], Type: model.ParseEntityType(args[2])}
			p := e.printer(cmd.OutOrStdout())
			if subs.IsSubscribed(item) {
				p.Successf("已订阅 %s", item.Name)
				return nil
			}
			subs.Add(item)
			p.Successf("已订阅 %s (%s)", item.Name, item.Type.Label())
			return nil
		},
	}
}

func (e *env) unsubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe <id>",
		Short: "Stop following an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, subs, err := e.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			item := model.Subscription{ID: args[0]}
			p := e.printer(cmd.OutOrStdout())
			if !subs.IsSubscribed(item) {
				p.Errorf("未订阅 %s", item.ID)
				return nil
			}
			subs.Remove(item)
			p.Successf("已取消订阅 %s", item.ID)
			return nil
		},
	}
}

func (e *env) subscriptionsCmd() *cobra.Command {
	var (
		asJSON     bool
		clearAll   bool
		exportPath string
		importPath string
	)
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "List, clear, import or export subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, subs, err := e.openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			p := e.printer(cmd.OutOrStdout())

			switch {
			case clearAll:
				subs.ClearAll()
				p.Successf("已清空订阅")
				return nil
			case importPath != "":
				f, err := os.Open(importPath)
				if err != nil {
					return err
				}
				defer f.Close()
				entries, err := opml.Parse(f)
				if err != nil {
					return err
				}
				imported := 0
				for _, entry := range entries {
					if !subs.IsSubscribed(entry) {
						subs.Add(entry)
						imported++
					}
				}
				p.Successf("导入 %d/%d 个订阅", imported, len(entries))
				return nil
			case exportPath != "":
				data, err := opml.Export("ReadHubX Subscriptions", subs.GetAll(), nil)
				if err != nil {
					return err
				}
				if err := os.WriteFile(exportPath, data, 0o644); err != nil {
					return err
				}
				p.Successf("已导出到 %s", exportPath)
				return nil
			}

			list := subs.GetAll()
			if asJSON {
				if list == nil {
					list = []model.Subscription{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			p.Subscriptions(list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "remove all subscriptions")
	cmd.Flags().StringVar(&exportPath, "export", "", "write subscriptions to an OPML file")
	cmd.Flags().StringVar(&importPath, "import", "", "add subscriptions from an OPML file")
	cmd.MarkFlagsMutuallyExclusive("json", "clear", "export", "import")
	return cmd
}
