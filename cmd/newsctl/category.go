package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	apptaxonomy "github.com/newsdesk/backend/internal/application/taxonomy"
	"github.com/spf13/cobra"
)

func newCategoryCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Maintain the category graph",
	}
	cmd.AddCommand(
		newCategoryCreateCommand(opts),
		newCategoryUpdateCommand(opts),
		newCategoryParentCommand(opts, "add-parent", "Attach a category under another parent"),
		newCategoryParentCommand(opts, "remove-parent", "Detach a category from one of its parents"),
		newCategoryStatusCommand(opts, "activate"),
		newCategoryStatusCommand(opts, "deactivate"),
		newCategoryDeleteCommand(opts),
		newCategoryListCommand(opts),
		newCategoryShowCommand(opts),
		newCategoryTreeCommand(opts),
		newCategoryOptionsCommand(opts),
		newCategoryPathsCommand(opts),
		newCategoryLevelCommand(opts),
		newCategoryCheckCycleCommand(opts),
	)
	return cmd
}

func printCategory(w io.Writer, c *apptaxonomy.CategoryResponse) {
	fmt.Fprintf(w, "%d\t%s\t%s\tparents=%v\n", c.ID, c.Name, c.Status, c.ParentIDs)
}

func newCategoryCreateCommand(opts *globalOptions) *cobra.Command {
	var (
		req      apptaxonomy.CreateCategoryRequest
		inactive bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inactive {
				active := false
				req.Active = &active
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				c, err := a.categories.Create(ctx, req)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, c, func(w io.Writer) { printCategory(w, c) })
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "category name")
	cmd.Flags().StringVar(&req.Description, "description", "", "category description")
	cmd.Flags().Int64SliceVar(&req.ParentIDs, "parent", nil, "parent category id (repeatable)")
	cmd.Flags().IntVar(&req.SortOrder, "sort", 0, "sort order")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the category inactive")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCategoryUpdateCommand(opts *globalOptions) *cobra.Command {
	var (
		name, description string
		parents           []int64
		sortOrder         int
		noParents         bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a category; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var req apptaxonomy.UpdateCategoryRequest
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("sort") {
				req.SortOrder = &sortOrder
			}
			switch {
			case noParents:
				empty := []int64{}
				req.ParentIDs = &empty
			case flags.Changed("parent"):
				req.ParentIDs = &parents
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				c, err := a.categories.Update(ctx, id, req)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, c, func(w io.Writer) { printCategory(w, c) })
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().Int64SliceVar(&parents, "parent", nil, "replace the parent list (repeatable)")
	cmd.Flags().BoolVar(&noParents, "root", false, "make the category a root")
	cmd.Flags().IntVar(&sortOrder, "sort", 0, "new sort order")
	return cmd
}

func newCategoryParentCommand(opts *globalOptions, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id> <parent-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				op := a.categories.AddParent
				if use == "remove-parent" {
					op = a.categories.RemoveParent
				}
				c, err := op(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, c, func(w io.Writer) { printCategory(w, c) })
			})
		},
	}
}

func newCategoryStatusCommand(opts *globalOptions, use string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				op := a.categories.Activate
				if use == "deactivate" {
					op = a.categories.Deactivate
				}
				c, err := op(ctx, id)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, c, func(w io.Writer) { printCategory(w, c) })
			})
		},
	}
}

func newCategoryDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category that has no children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.categories.Delete(ctx, id); err != nil {
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

func newCategoryListCommand(opts *globalOptions) *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				list, err := a.categories.List(ctx, activeOnly)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, list, func(w io.Writer) {
					for i := range list {
						printCategory(w, &list[i])
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active categories")
	return cmd
}

func newCategoryShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a category with its level, counts and breadcrumbs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				stats, err := a.presentation.Stats(ctx, id)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, stats, func(w io.Writer) {
					fmt.Fprintf(w, "id:        %d\n", stats.ID)
					fmt.Fprintf(w, "name:      %s\n", stats.Name)
					fmt.Fprintf(w, "level:     %d\n", stats.Level)
					fmt.Fprintf(w, "root:      %t\n", stats.IsRoot)
					fmt.Fprintf(w, "active:    %t\n", stats.Active)
					fmt.Fprintf(w, "children:  %d\n", stats.ChildrenCount)
					fmt.Fprintf(w, "news:      %d\n", stats.NewsCount)
					fmt.Fprintf(w, "parents:   %v\n", stats.ParentIDs)
				})
			})
		},
	}
}

func newCategoryTreeCommand(opts *globalOptions) *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the category forest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				tree, err := a.presentation.TreeForDisplay(ctx, activeOnly)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, tree, func(w io.Writer) {
					printTree(w, tree, "")
				})
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active categories")
	return cmd
}

func printTree(w io.Writer, nodes []apptaxonomy.TreeNode, indent string) {
	for _, n := range nodes {
		marker := ""
		if !n.Active {
			marker = " (inactive)"
		}
		fmt.Fprintf(w, "%s%s [%d]%s\n", indent, n.Name, n.ID, marker)
		printTree(w, n.Children, indent+"  ")
	}
}

func newCategoryOptionsCommand(opts *globalOptions) *cobra.Command {
	var params apptaxonomy.OptionListParams
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Print the indented parent picker list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				options, err := a.presentation.HierarchicalOptionList(ctx, params)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, options, func(w io.Writer) {
					for _, o := range options {
						fmt.Fprintf(w, "%d\t%s\n", o.Value, o.Label)
					}
				})
			})
		},
	}
	cmd.Flags().Int64Var(&params.ExcludeID, "exclude", 0, "leave out this category and everything below it")
	cmd.Flags().BoolVar(&params.ActiveOnly, "active", false, "only active categories")
	cmd.Flags().BoolVar(&params.WithEmpty, "with-empty", false, "prepend the empty choice")
	return cmd
}

func newCategoryPathsCommand(opts *globalOptions) *cobra.Command {
	var separator string
	cmd := &cobra.Command{
		Use:   "paths <id>",
		Short: "Print every root-to-category path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				paths, err := a.presentation.FormattedPaths(ctx, id, separator)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, paths, func(w io.Writer) {
					for _, p := range paths {
						fmt.Fprintln(w, p)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&separator, "separator", "", "path separator (default from config)")
	return cmd
}

func newCategoryLevelCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "level <id>",
		Short: "Print the depth of a category along its first-parent chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				level, err := a.graph.Level(ctx, id)
				if err != nil {
					return err
				}
				out := map[string]int{"level": level}
				return render(cmd.OutOrStdout(), opts, out, func(w io.Writer) {
					fmt.Fprintln(w, level)
				})
			})
		},
	}
}

func newCategoryCheckCycleCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-cycle <id> <candidate-parent-id>",
		Short: "Report whether attaching the candidate parent would create a cycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				check, err := a.graph.WouldCreateCycle(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, check, func(w io.Writer) {
					switch {
					case check.Cyclic:
						fmt.Fprintln(w, "cycle")
					case check.Truncated:
						fmt.Fprintln(w, "unknown (depth limit reached)")
					default:
						fmt.Fprintln(w, "ok")
					}
				})
			})
		},
	}
}
