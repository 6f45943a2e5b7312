package main

import (
	"context"
	"fmt"
	"io"

	apptaxonomy "github.com/newsdesk/backend/internal/application/taxonomy"
	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/spf13/cobra"
)

func newNewsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "File news items under categories",
	}
	cmd.AddCommand(
		newNewsCreateCommand(opts),
		newNewsUpdateCommand(opts),
		newNewsSyncCommand(opts),
		newNewsCategoryCommand(opts, "add-category", "File a news item under one more category"),
		newNewsCategoryCommand(opts, "remove-category", "Remove a news item from a category"),
		newNewsShowCommand(opts),
		newNewsDeleteCommand(opts),
		newNewsListCommand(opts),
		newNewsAssignCommand(opts),
	)
	return cmd
}

func printNews(w io.Writer, n *apptaxonomy.NewsResponse) {
	fmt.Fprintf(w, "%d\t%s\t%s\tcategories=%v\n", n.ID, n.Title, n.Status, n.CategoryIDs)
	if len(n.DroppedCategoryIDs) > 0 {
		fmt.Fprintf(w, "dropped unknown categories: %v\n", n.DroppedCategoryIDs)
	}
}

func printSync(w io.Writer, r *apptaxonomy.SyncResult) {
	fmt.Fprintf(w, "applied: %v\n", r.Applied)
	if r.HasDrops() {
		fmt.Fprintf(w, "dropped: %v\n", r.Dropped)
	}
}

func newNewsCreateCommand(opts *globalOptions) *cobra.Command {
	var (
		req      apptaxonomy.CreateNewsRequest
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a news item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if disabled {
				enabled := false
				req.Enabled = &enabled
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				n, err := a.news.Create(ctx, req)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, n, func(w io.Writer) { printNews(w, n) })
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "title")
	cmd.Flags().StringVar(&req.Body, "body", "", "body text")
	cmd.Flags().StringVar(&req.Image, "image", "", "image path")
	cmd.Flags().Int64SliceVar(&req.CategoryIDs, "category", nil, "category id (repeatable)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the item disabled")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newNewsUpdateCommand(opts *globalOptions) *cobra.Command {
	var (
		title, body, image string
		enabled            bool
		categories         []int64
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a news item; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var req apptaxonomy.UpdateNewsRequest
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("body") {
				req.Body = &body
			}
			if flags.Changed("image") {
				req.Image = &image
			}
			if flags.Changed("enabled") {
				req.Enabled = &enabled
			}
			if flags.Changed("category") {
				req.CategoryIDs = &categories
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				n, err := a.news.Update(ctx, id, req)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, n, func(w io.Writer) { printNews(w, n) })
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&body, "body", "", "new body")
	cmd.Flags().StringVar(&image, "image", "", "new image path")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "enable or disable the item")
	cmd.Flags().Int64SliceVar(&categories, "category", nil, "replace the category set (repeatable)")
	return cmd
}

func newNewsSyncCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <news-id> [category-id...]",
		Short: "Replace the category set of a news item; no ids clears it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.associations.Sync(ctx, ids[0], ids[1:])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, result, func(w io.Writer) { printSync(w, result) })
			})
		},
	}
}

func newNewsAssignCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <category-id> [news-id...]",
		Short: "Replace the news items filed under a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.associations.SyncCategory(ctx, ids[0], ids[1:])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, result, func(w io.Writer) { printSync(w, result) })
			})
		},
	}
}

func newNewsCategoryCommand(opts *globalOptions, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <news-id> <category-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				op := a.associations.AddCategory
				if use == "remove-category" {
					op = a.associations.RemoveCategory
				}
				ok, err := op(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				out := map[string]bool{"ok": ok}
				return render(cmd.OutOrStdout(), opts, out, func(w io.Writer) {
					if ok {
						fmt.Fprintln(w, "ok")
					} else {
						fmt.Fprintf(w, "category %d not found, nothing changed\n", ids[1])
					}
				})
			})
		},
	}
}

func newNewsShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a news item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				n, err := a.news.GetByID(ctx, id)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, n, func(w io.Writer) { printNews(w, n) })
			})
		},
	}
}

func newNewsDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a news item and its category links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.news.Delete(ctx, id); err != nil {
					return err
				}
				out := map[string]int64{"deleted": id}
				return render(cmd.OutOrStdout(), opts, out, func(w io.Writer) {
					fmt.Fprintf(w, "deleted %d\n", id)
				})
			})
		},
	}
}

func newNewsListCommand(opts *globalOptions) *cobra.Command {
	var (
		categoryID  int64
		enabledOnly bool
		filter      = shared.DefaultFilter()
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List news items, optionally under one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				page, err := a.news.ListByCategory(ctx, categoryID, filter, enabledOnly)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, page, func(w io.Writer) {
					for i := range page.Items {
						printNews(w, &page.Items[i])
					}
					fmt.Fprintf(w, "page %d/%d, %d total\n", page.Page, page.TotalPages, page.Total)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&categoryID, "category", 0, "only items filed under this category")
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only enabled items")
	cmd.Flags().IntVar(&filter.Page, "page", filter.Page, "page number")
	cmd.Flags().IntVar(&filter.PageSize, "page-size", filter.PageSize, "items per page")
	cmd.Flags().StringVar(&filter.Search, "search", "", "title substring")
	cmd.Flags().StringVar(&filter.OrderBy, "order-by", filter.OrderBy, "sort column (id, title, created_at, updated_at)")
	cmd.Flags().StringVar(&filter.OrderDir, "order", filter.OrderDir, "sort direction (asc, desc)")
	return cmd
}
