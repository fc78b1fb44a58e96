package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	dashboard "github.com/danieldean2000/oscorm-dashboard"
	"github.com/danieldean2000/oscorm-dashboard/auth"
	"github.com/danieldean2000/oscorm-dashboard/auth/authtest"
	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/eventbus"
	"github.com/danieldean2000/oscorm-dashboard/identity"
	"github.com/danieldean2000/oscorm-dashboard/logging"
	"github.com/danieldean2000/oscorm-dashboard/posts"
	"github.com/danieldean2000/oscorm-dashboard/session"
	"github.com/danieldean2000/oscorm-dashboard/storage"
)

var errNotSignedIn = errors.New("not signed in, run 'dashboard login' first")

// runtime wraps an initialized app for commands that need the signed-in user.
type runtime struct {
	app      *dashboard.App
	store    storage.Store
	provider *auth.Provider
}

func start(ctx context.Context) (*runtime, error) {
	store, err := openStore(
		dashboard.ConfigString("storage.driver"),
		dashboard.ConfigString("storage.dsn"),
		dashboard.ConfigString("storage.prefix"),
	)
	if err != nil {
		return nil, err
	}

	bus := eventbus.NewBus(ctx)
	bus.Subscribe(session.TopicCommitted, func(ctx context.Context, msg *eventbus.Message) error {
		if ev, ok := msg.Data.(session.Event); ok {
			logging.Infow(ctx, "dashboard: signed in", "user.id", ev.Identity.ID, "user.role", ev.Identity.Role)
		}
		return nil
	})
	bus.Subscribe(session.TopicCleared, func(ctx context.Context, msg *eventbus.Message) error {
		logging.Info(ctx, "dashboard: signed out")
		return nil
	})

	app := dashboard.New(
		dashboard.WithContext(ctx),
		dashboard.WithLogger(logging.FromContext(ctx)),
		dashboard.WithPlugin(storage.Plugin(store)),
		dashboard.WithPlugin(eventbus.Plugin(bus)),
		dashboard.WithPlugin(auth.Plugin()),
	)
	if err := app.Init(); err != nil {
		_ = store.Close()
		return nil, err
	}
	ap := app.Registry().Get(auth.PluginName).(*auth.AuthPlugin)
	return &runtime{app: app, store: store, provider: ap.Provider()}, nil
}

func (r *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.app.Shutdown(ctx); err != nil {
		logging.Errorw(r.app.Context(), "dashboard: shutdown failed", "error", err)
	}
}

func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("dashboard "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "login")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password, read from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}
	if *password == "" {
		line, err := bufio.NewReader(e.stdin).ReadString('\n')
		if err != nil && line == "" {
			return errors.WrapPrefix(err, "failed to read password", 0)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	rt, err := start(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	ok, err := rt.provider.Login(rt.app.Context(), *email, *password)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("login failed")
	}
	u, _ := rt.provider.User()
	fmt.Fprintf(e.stdout, "Signed in as %s\n", describe(u))
	return nil
}

func runLogout(ctx context.Context, e *env, args []string) error {
	if err := newFlagSet(e, "logout").Parse(args); err != nil {
		return err
	}
	rt, err := start(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.provider.Logout(rt.app.Context())
	fmt.Fprintln(e.stdout, "Signed out")
	return nil
}

func runWhoami(ctx context.Context, e *env, args []string) error {
	if err := newFlagSet(e, "whoami").Parse(args); err != nil {
		return err
	}
	rt, err := start(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	u, ok := rt.provider.User()
	if !ok {
		return errNotSignedIn
	}
	fmt.Fprintln(e.stdout, describe(u))
	return nil
}

func runPosts(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "posts")
	recent := fs.Int("recent", 5, "Number of posts to list")
	seed := fs.Bool("seed", true, "Load the sample posts into an empty store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := start(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	ctx = rt.app.Context()

	u, ok := rt.provider.User()
	if !ok {
		return errNotSignedIn
	}

	repo := posts.NewRepository(rt.store)
	if *seed {
		all, err := repo.All(ctx)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			if err := repo.Save(ctx, posts.Samples()...); err != nil {
				return err
			}
		}
	}

	visible, err := repo.VisibleTo(ctx, u)
	if err != nil {
		return err
	}
	stats := posts.Summarize(visible)

	fmt.Fprintf(e.stdout, "%s: %d posts, %d published, %d drafts, %d views\n\n",
		dashboard.ConfigString("name"), stats.Total, stats.Published, stats.Drafts, stats.Views)
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSTATUS\tVIEWS\tDATE")
	for _, p := range posts.Recent(visible, *recent) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", p.ID, p.Title, p.Author, p.Status, p.Views, p.Date)
	}
	return tw.Flush()
}

func runServeFake(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "serve-fake")
	addr := fs.String("addr", dashboard.ConfigString("fakeBackend.address"), "Listen address")
	origins := fs.String("cors", "http://localhost:3000", "Comma separated browser origins allowed to call the backend")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend, err := authtest.NewBackend(
		authtest.WithContext(ctx),
		authtest.WithCORSOrigins(strings.Split(*origins, ",")...),
	)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return errors.WrapPrefix(err, "failed to listen", 0)
	}

	srv := &http.Server{Handler: backend, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(e.stdout, "Login backend listening on http://%s%s\n", ln.Addr(), authtest.LoginPath)
	for _, u := range authtest.DefaultUsers() {
		fmt.Fprintf(e.stdout, "  %s / %s (%s)\n", u.Email, u.Password, u.Role.Label())
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runConfig(ctx context.Context, e *env, args []string) error {
	if err := newFlagSet(e, "config").Parse(args); err != nil {
		return err
	}

	if warnings := dashboard.ValidateConfig(); len(warnings) > 0 {
		fmt.Fprintln(e.stderr, dashboard.FormatValidationWarnings(warnings))
	}

	keys := dashboard.ConfigKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tDESCRIPTION")
	for _, k := range keys {
		if k.Deprecated {
			continue
		}
		fmt.Fprintf(tw, "%s\t%v\t%s\n", k.Key, dashboard.Config.Get(k.Key), k.Description)
	}
	return tw.Flush()
}

func describe(u identity.Identity) string {
	return fmt.Sprintf("%s <%s> (%s, id %s)", u.Name, u.Email, u.Role.Label(), u.ID)
}
