package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ctrlcompliance/admin-console/adminusers"
	"github.com/ctrlcompliance/admin-console/auth"
	"github.com/ctrlcompliance/admin-console/authlogs"
	"github.com/ctrlcompliance/admin-console/comments"
	"github.com/ctrlcompliance/admin-console/console"
	"github.com/ctrlcompliance/admin-console/content"
	"github.com/ctrlcompliance/admin-console/internal/utils"
	"github.com/ctrlcompliance/admin-console/messages"
)

// view erases the console's type parameter so the command loop can hold any
// resource.
type view interface {
	name() string
	refresh(ctx context.Context) error
	search(ctx context.Context, text string) error
	filter(ctx context.Context, value string) error
	extraFilter(ctx context.Context, extra map[string]string) error
	limit(ctx context.Context, n int) error
	move(ctx context.Context, where string) error
	toggle(id string)
	clearSelection()
	mutate(ctx context.Context, op, id string, args []string) error
	bulk(ctx context.Context, op string, args []string) []console.ItemError
	export(scope console.ExportScope) ([]byte, string, error)
	render()
	ops() []string
	close()
}

// mutationFactory builds a mutation from trailing command arguments (only the
// password reset uses them).
type mutationFactory func(args []string) (console.Mutation, error)

type resourceView[T any] struct {
	con       *console.Console[T]
	res       console.Resource[T]
	factories map[string]mutationFactory
}

func newResourceView[T any](con *console.Console[T], res console.Resource[T], factories map[string]mutationFactory) *resourceView[T] {
	return &resourceView[T]{con: con, res: res, factories: factories}
}

func (v *resourceView[T]) name() string { return v.res.Name }

func (v *resourceView[T]) refresh(ctx context.Context) error { return v.con.Refresh(ctx) }

func (v *resourceView[T]) toggle(id string) { v.con.ToggleSelect(id) }

func (v *resourceView[T]) clearSelection() { v.con.ClearSelection() }

func (v *resourceView[T]) search(ctx context.Context, text string) error {
	return v.con.SetQuery(ctx, console.QueryPatch{Search: utils.Ptr(text)})
}

func (v *resourceView[T]) filter(ctx context.Context, value string) error {
	return v.con.SetQuery(ctx, console.QueryPatch{Status: utils.Ptr(value)})
}

func (v *resourceView[T]) extraFilter(ctx context.Context, extra map[string]string) error {
	return v.con.SetQuery(ctx, console.QueryPatch{Extra: extra})
}

func (v *resourceView[T]) limit(ctx context.Context, n int) error {
	return v.con.SetQuery(ctx, console.QueryPatch{Limit: utils.Ptr(n)})
}

func (v *resourceView[T]) move(ctx context.Context, where string) error {
	switch where {
	case "first":
		return v.con.FirstPage(ctx)
	case "prev":
		return v.con.PrevPage(ctx)
	case "next":
		return v.con.NextPage(ctx)
	case "last":
		return v.con.LastPage(ctx)
	}
	return fmt.Errorf("unknown page move %q", where)
}

func (v *resourceView[T]) mutate(ctx context.Context, op, id string, args []string) error {
	factory, ok := v.factories[op]
	if !ok {
		return fmt.Errorf("%s does not support %q", v.res.Name, op)
	}
	m, err := factory(args)
	if err != nil {
		return err
	}
	return v.con.MutateOne(ctx, id, m)
}

func (v *resourceView[T]) bulk(ctx context.Context, op string, args []string) []console.ItemError {
	factory, ok := v.factories[op]
	if !ok {
		return []console.ItemError{{Op: op, Message: "unsupported operation"}}
	}
	m, err := factory(args)
	if err != nil {
		return []console.ItemError{{Op: op, Message: err.Error()}}
	}
	return v.con.MutateBulk(ctx, m)
}

func (v *resourceView[T]) export(scope console.ExportScope) ([]byte, string, error) {
	return v.con.ExportCSV(scope)
}

func (v *resourceView[T]) render() {
	items := v.con.Items()
	selected := map[string]bool{}
	for _, id := range v.con.Selected() {
		selected[id] = true
	}

	fmt.Println(strings.Join(v.res.Columns, " | "))
	for _, item := range items {
		mark := " "
		if selected[v.res.ID(item)] {
			mark = "*"
		}
		fmt.Printf("%s %s\n", mark, strings.Join(v.res.Row(item), " | "))
	}
	if len(items) == 0 {
		fmt.Println("(no rows)")
	}

	q := v.con.Query()
	fmt.Printf("Page %d of %d · Total %d\n", q.Page, v.con.Pages(), v.con.Total())
}

func (v *resourceView[T]) ops() []string {
	names := make([]string, 0, len(v.factories))
	for op := range v.factories {
		names = append(names, op)
	}
	return names
}

func (v *resourceView[T]) close() { v.con.Close() }

func simple(m console.Mutation) mutationFactory {
	return func([]string) (console.Mutation, error) { return m, nil }
}

// buildViews wires one console per admin resource, all reporting into the
// auth controller.
func (s *session) buildViews() (map[string]view, error) {
	views := map[string]view{}

	msgRes := messages.Resource()
	msgCon, err := console.New(s.api, msgRes, s.controller, console.WithLogger[messages.Message](s.log))
	if err != nil {
		return nil, err
	}
	views["messages"] = newResourceView(msgCon, msgRes, map[string]mutationFactory{
		"read":    simple(messages.SetRead(true)),
		"unread":  simple(messages.SetRead(false)),
		"delete":  simple(messages.Delete()),
		"restore": simple(messages.Restore()),
	})

	userRes := adminusers.Resource()
	userCon, err := console.New(s.api, userRes, s.controller, console.WithLogger[adminusers.User](s.log))
	if err != nil {
		return nil, err
	}
	views["users"] = newResourceView(userCon, userRes, map[string]mutationFactory{
		"disable":   simple(adminusers.SetDisabled(true)),
		"enable":    simple(adminusers.SetDisabled(false)),
		"reset-mfa": simple(adminusers.ResetMfa()),
		"delete":    simple(adminusers.Delete()),
		"passwd": func(args []string) (console.Mutation, error) {
			if len(args) != 1 {
				return console.Mutation{}, fmt.Errorf("usage: mutate passwd <id> <new-password>")
			}
			return adminusers.ResetPassword(args[0]), nil
		},
	})

	for viewName, res := range map[string]console.Resource[content.Post]{
		"news":  content.News(),
		"blogs": content.Blogs(),
	} {
		con, err := console.New(s.api, res, s.controller, console.WithLogger[content.Post](s.log))
		if err != nil {
			return nil, err
		}
		views[viewName] = newResourceView(con, res, map[string]mutationFactory{
			"publish":   simple(content.SetPublished(true)),
			"unpublish": simple(content.SetPublished(false)),
			"delete":    simple(content.Delete()),
		})
	}

	comRes := comments.Resource()
	comCon, err := console.New(s.api, comRes, s.controller, console.WithLogger[comments.Comment](s.log))
	if err != nil {
		return nil, err
	}
	views["comments"] = newResourceView(comCon, comRes, map[string]mutationFactory{
		"approve":   simple(comments.SetApproved(true)),
		"unapprove": simple(comments.SetApproved(false)),
		"delete":    simple(comments.Delete()),
	})

	logRes := authlogs.Resource()
	logCon, err := console.New(s.api, logRes, s.controller, console.WithLogger[authlogs.Entry](s.log))
	if err != nil {
		return nil, err
	}
	views["logs"] = newResourceView(logCon, logRes, nil)

	return views, nil
}

// closeViews tears down the per-resource consoles. Only logout and session
// end do this; handing control back for an MFA re-verification keeps them
// alive so the operator's place survives.
func (s *session) closeViews() {
	for _, v := range s.views {
		v.close()
	}
	s.views = nil
	s.current = nil
}

// browse is the authenticated command loop. It returns true when the
// operator quits, false when authentication state changed and the outer loop
// must take over (logout, session loss, mid-session MFA challenge).
func (s *session) browse(ctx context.Context) bool {
	if s.views == nil {
		views, err := s.buildViews()
		if err != nil {
			fmt.Printf("Console setup failed: %s\n", err)
			return true
		}
		s.views = views
		s.current = views["messages"]
	}

	if err := s.current.refresh(ctx); err != nil {
		fmt.Printf("Load failed: %s\n", err)
	}
	s.current.render()

	for {
		if !s.stillAuthenticated() {
			return false
		}

		line := s.prompt(fmt.Sprintf("\n[%s]> ", s.current.name()))
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			s.printHelp(s.current)
		case "use":
			if len(args) != 1 {
				fmt.Println("usage: use <messages|users|news|blogs|comments|logs>")
				continue
			}
			next, ok := s.views[args[0]]
			if !ok {
				fmt.Printf("unknown resource %q\n", args[0])
				continue
			}
			s.current = next
			s.printErr(s.current.refresh(ctx))
			s.current.render()
		case "list", "refresh":
			s.printErr(s.current.refresh(ctx))
			s.current.render()
		case "search":
			s.printErr(s.current.search(ctx, strings.Join(args, " ")))
			s.current.render()
		case "filter":
			s.printErr(s.current.filter(ctx, strings.Join(args, "")))
			s.current.render()
		case "slug":
			if s.current.name() != "comments" {
				fmt.Println("slug filtering works on the comments view")
				continue
			}
			s.printErr(s.current.extraFilter(ctx, comments.SlugFilter(strings.Join(args, ""))))
			s.current.render()
		case "limit":
			n, err := strconv.Atoi(strings.Join(args, ""))
			if err != nil {
				fmt.Println("usage: limit <10|20|50|100>")
				continue
			}
			s.printErr(s.current.limit(ctx, n))
			s.current.render()
		case "first", "prev", "next", "last":
			s.printErr(s.current.move(ctx, cmd))
			s.current.render()
		case "select":
			for _, id := range args {
				s.current.toggle(id)
			}
			s.current.render()
		case "clear":
			s.current.clearSelection()
		case "mutate":
			if len(args) < 2 {
				fmt.Printf("usage: mutate <%s> <id> [args]\n", strings.Join(s.current.ops(), "|"))
				continue
			}
			s.printErr(s.current.mutate(ctx, args[0], args[1], args[2:]))
			s.current.render()
		case "bulk":
			if len(args) < 1 {
				fmt.Printf("usage: bulk <%s> [args]\n", strings.Join(s.current.ops(), "|"))
				continue
			}
			for _, itemErr := range s.current.bulk(ctx, args[0], args[1:]) {
				fmt.Printf("  %s %s: %s\n", itemErr.Op, itemErr.ID, itemErr.Message)
			}
			s.current.render()
		case "export":
			scope := console.ExportPage
			if len(args) > 0 && args[0] == "selection" {
				scope = console.ExportSelection
			}
			s.exportCsv(s.current, scope)
		case "compose":
			s.compose(ctx, s.current.name())
		case "adduser":
			s.addUser(ctx)
		case "logout":
			s.closeViews()
			s.controller.Logout(ctx)
			return false
		case "quit", "exit":
			return true
		default:
			fmt.Printf("unknown command %q (try help)\n", cmd)
		}
	}
}

func (s *session) stillAuthenticated() bool {
	return s.controller.State().Status == auth.StatusAuthenticated
}

func (s *session) printErr(err error) {
	if err != nil {
		fmt.Printf("Error: %s\n", err)
	}
}

func (s *session) exportCsv(current view, scope console.ExportScope) {
	data, filename, err := current.export(scope)
	if err != nil {
		fmt.Printf("Export failed: %s\n", err)
		return
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		fmt.Printf("Export failed: %s\n", err)
		return
	}
	fmt.Printf("Wrote %s\n", filename)
}

// compose runs the create-or-update editor flow for news and blogs.
func (s *session) compose(ctx context.Context, viewName string) {
	var path string
	switch viewName {
	case "news":
		path = content.NewsPath
	case "blogs":
		path = content.BlogsPath
	default:
		fmt.Println("compose works on the news and blogs views")
		return
	}

	editor, err := content.NewEditor(s.api, path, s.controller)
	if err != nil {
		fmt.Printf("Editor setup failed: %s\n", err)
		return
	}

	form := content.Form{
		ID:      s.prompt("ID (blank to create): "),
		Title:   s.prompt("Title: "),
		Slug:    s.prompt("Slug (blank to derive from title): "),
		Excerpt: s.prompt("Excerpt: "),
		Body:    s.prompt("Body HTML: "),
	}
	form.Published = strings.EqualFold(s.prompt("Publish now? [y/N]: "), "y")

	saved, err := editor.Save(ctx, form)
	if err != nil {
		fmt.Printf("Save failed: %s\n", err)
		return
	}
	fmt.Printf("Saved %q as /%s\n", saved.Title, saved.Slug)
}

func (s *session) addUser(ctx context.Context) {
	user := adminusers.NewUser{
		Email:    s.prompt("Email: "),
		Name:     s.prompt("Name: "),
		Role:     s.prompt("Role: "),
		Password: s.prompt("Initial password: "),
	}
	created, err := adminusers.Create(ctx, s.api, user)
	if err != nil {
		fmt.Printf("Create failed: %s\n", err)
		return
	}
	fmt.Printf("Created admin user %s (%s)\n", created.Email, created.ID)
}

func (s *session) printHelp(current view) {
	fmt.Println(`Commands:
  use <messages|users|news|blogs|comments|logs>
  list | refresh | search <text> | filter <value> | limit <n>
  slug <post-slug>  (comments only, blank to clear)
  first | prev | next | last
  select <id...> | clear
  mutate <op> <id> [args] | bulk <op> [args]
  export [selection|page]
  compose          (news/blogs editor)
  adduser          (create admin user)
  logout | quit`)
	if ops := current.ops(); len(ops) > 0 {
		fmt.Printf("Operations on %s: %s\n", current.name(), strings.Join(ops, ", "))
	}
}
