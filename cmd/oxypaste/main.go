package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"oxypaste/cfg"
	"oxypaste/pkg/domain"
	"oxypaste/pkg/lang"
	"oxypaste/svc/cache"
	"oxypaste/svc/ledger"
	"oxypaste/svc/session"
	"oxypaste/svc/transport"
	"oxypaste/svc/util"
	"oxypaste/ui"
)

const usage = `oxypaste - pastebin client

Usage:
  oxypaste                     open the editor (shows the welcome paste)
  oxypaste new [--edit ID]     open a blank editor, or edit an existing paste
  oxypaste view ID             print a paste, highlighted
  oxypaste raw ID              print a paste's raw body
  oxypaste create [flags]      create a paste from stdin or --file
  oxypaste delete ID           delete a paste you own
  oxypaste history             list pastes created anonymously from here
  oxypaste list [public|root]  browse listings
  oxypaste search QUERY...     search pastes
  oxypaste stats               instance statistics
  oxypaste signup              create an account
  oxypaste login               log in and store the session token
  oxypaste logout              drop the stored session token
  oxypaste whoami              show the logged-in account
`

type app struct {
	cfg    *cfg.Cfg
	client *transport.Client
	sess   *session.Session
	ledger *ledger.Ledger
	tokens *ledger.TokenSource
	store  ledger.Store
}

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		util.Fatal().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	if err := cfg.Validate(c); err != nil {
		util.Fatal().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	util.InitLog(c.LogLevel, c.Environment == "development")

	a := newApp(c)
	defer a.store.Close()

	args := os.Args[1:]
	command := ""
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "":
		runEditor(a, nil, true)
	case "new":
		runEditor(a, args, false)
	case "view":
		runView(a, args)
	case "raw":
		runRaw(a, args)
	case "create":
		runCreate(a, args)
	case "delete":
		runDelete(a, args)
	case "history":
		runHistory(a)
	case "list":
		runList(a, args)
	case "search":
		runSearch(a, args)
	case "stats":
		runStats(a)
	case "signup":
		runSignup(a, args)
	case "login":
		runLogin(a, args)
	case "logout":
		runLogout(a)
	case "whoami":
		runWhoami(a)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
}

func newApp(c *cfg.Cfg) *app {
	var store ledger.Store
	if c.RedisURL != "" {
		redisStore, err := ledger.NewRedisStore(c.RedisURL, c)
		if err != nil {
			if c.Environment == "production" {
				util.Fatal().Err(err).Msg("redis required when REDIS_URL is set in production")
				os.Exit(1)
			}
			util.Warn().Err(err).Msg("redis unavailable, falling back to sqlite ledger")
		} else {
			store = redisStore
		}
	}
	if store == nil {
		sqliteStore, err := ledger.NewSQLiteStore(c.LedgerPath)
		if err != nil {
			util.Fatal().Err(err).Str("path", c.LedgerPath).Msg("failed to open ledger")
			os.Exit(1)
		}
		store = sqliteStore
	}

	tokens := ledger.NewTokenSource(store)
	led := ledger.New(store)

	readCache, err := cache.NewLRU(c.CacheSize)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to create read cache")
		os.Exit(1)
	}
	client, err := transport.New(c, tokens, readCache)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to build API client")
		os.Exit(1)
	}

	return &app{
		cfg:    c,
		client: client,
		sess:   session.New(client, led, tokens, nil),
		ledger: led,
		tokens: tokens,
		store:  store,
	}
}

func opCtx(c *cfg.Cfg) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.RequestTimeout)
}

func fail(err error, msg string) {
	util.Error().Err(err).Msg(msg)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func requireID(args []string, command string) string {
	if len(args) < 1 || args[0] == "" {
		fmt.Fprintf(os.Stderr, "usage: oxypaste %s ID\n", command)
		os.Exit(2)
	}
	return args[0]
}

func pasteURL(c *cfg.Cfg, id string) string {
	return strings.TrimRight(c.APIBaseURL, "/") + "/" + id
}

// runEditor opens the interactive surface. The bare invocation seeds
// the draft with the instance's welcome paste; a missing welcome paste
// just means a blank editor.
func runEditor(a *app, args []string, welcome bool) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	editID := fs.String("edit", "", "open an existing paste for editing")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	ctx, cancel := opCtx(a.cfg)
	defer cancel()
	switch {
	case *editID != "":
		if err := a.sess.Edit(ctx, *editID); err != nil {
			fail(err, "failed to load paste")
		}
	case welcome:
		if paste, err := a.client.Get(ctx, a.cfg.WelcomeDocument); err == nil {
			a.sess.StartNew(paste.Content)
		} else {
			a.sess.StartNew("")
		}
	default:
		a.sess.StartNew("")
	}

	if err := ui.Run(a.cfg, a.client, a.sess); err != nil {
		fail(err, "editor failed")
	}
}

// runView opens the read-only viewer. When stdout is redirected the
// highlighted body is printed instead, so `oxypaste view ID | less -R`
// works.
func runView(a *app, args []string) {
	id := requireID(args, "view")
	ctx, cancel := opCtx(a.cfg)
	defer cancel()

	if err := a.sess.View(ctx, id); err != nil {
		fail(err, "failed to fetch paste")
	}
	if stat, err := os.Stdout.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		draft := a.sess.Draft()
		language := draft.Language
		if language == lang.AutoDetect {
			language = lang.Detect(draft.Content)
		}
		fmt.Println(ui.Highlight(draft.Content, language, "monokai"))
		return
	}
	if err := ui.Run(a.cfg, a.client, a.sess); err != nil {
		fail(err, "viewer failed")
	}
}

func runRaw(a *app, args []string) {
	id := requireID(args, "raw")
	ctx, cancel := opCtx(a.cfg)
	defer cancel()

	body, meta, err := a.client.Raw(ctx, id)
	if err != nil {
		fail(err, "failed to fetch paste")
	}
	fmt.Fprintf(os.Stderr, "%s · %s · created %s\n", meta.ID, meta.Language, meta.CreatedAt.Format(time.RFC3339))
	fmt.Print(body)
}

func runCreate(a *app, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	title := fs.String("title", "", "paste title")
	language := fs.String("language", "", "language (omitted: auto-detect)")
	file := fs.String("file", "", "read content from a file instead of stdin")
	private := fs.Bool("private", false, "create as private")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	var content []byte
	var err error
	if *file != "" {
		content, err = os.ReadFile(*file)
	} else {
		content, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fail(err, "failed to read content")
	}
	if len(content) == 0 {
		fmt.Fprintln(os.Stderr, "refusing to create an empty paste")
		os.Exit(2)
	}

	a.sess.StartNew("")
	a.sess.SetContent(string(content))
	a.sess.SetTitle(*title)
	if *language != "" {
		a.sess.ChooseLanguage(lang.Normalize(*language))
	} else {
		a.sess.DetectNow()
	}
	if *private {
		a.sess.SetPublic(false)
	}

	ctx, cancel := opCtx(a.cfg)
	defer cancel()
	paste, err := a.sess.Save(ctx)
	if err != nil {
		fail(err, "failed to create paste")
	}
	fmt.Println(pasteURL(a.cfg, paste.ID))
}

func runDelete(a *app, args []string) {
	id := requireID(args, "delete")
	ctx, cancel := opCtx(a.cfg)
	defer cancel()

	if err := a.sess.Delete(ctx, id); err != nil {
		fail(err, "failed to delete paste")
	}
	fmt.Println("deleted " + id)
}

func runHistory(a *app) {
	ctx, cancel := opCtx(a.cfg)
	defer cancel()

	entries, err := a.ledger.List(ctx)
	if err != nil {
		fail(err, "failed to read ledger")
	}
	if len(entries) == 0 {
		fmt.Println("no anonymous pastes recorded on this machine")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tURL")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", entry.PasteID, entry.CreatedAt.Format("2006-01-02 15:04"), pasteURL(a.cfg, entry.PasteID))
	}
	w.Flush()
}

func runList(a *app, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 0, "items per page")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	which := "public"
	if fs.NArg() > 0 {
		which = fs.Arg(0)
	}
	if *pageSize == 0 {
		*pageSize = a.cfg.PageSize
	}

	ctx, cancel := opCtx(a.cfg)
	defer cancel()
	var result *domain.Page
	var err error
	switch which {
	case "public":
		result, err = a.client.ListPublic(ctx, *page, *pageSize)
	case "root":
		result, err = a.client.ListRoot(ctx, *page, *pageSize)
	default:
		fmt.Fprintln(os.Stderr, "usage: oxypaste list [public|root]")
		os.Exit(2)
	}
	if err != nil {
		fail(err, "failed to list pastes")
	}
	printPage(a.cfg, result)
}

func runSearch(a *app, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	author := fs.String("author", "", "filter by author")
	titleOnly := fs.Bool("title-only", false, "match titles only")
	sort := fs.String("sort", "", "sort order")
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 0, "items per page")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	query := strings.Join(fs.Args(), " ")
	if query == "" && *author == "" {
		fmt.Fprintln(os.Stderr, "usage: oxypaste search QUERY...")
		os.Exit(2)
	}
	if *pageSize == 0 {
		*pageSize = a.cfg.PageSize
	}

	ctx, cancel := opCtx(a.cfg)
	defer cancel()
	result, err := a.client.Search(ctx, domain.SearchParams{
		Query:     query,
		Author:    *author,
		TitleOnly: *titleOnly,
		Sort:      *sort,
		Page:      *page,
		PageSize:  *pageSize,
	})
	if err != nil {
		fail(err, "search failed")
	}
	printPage(a.cfg, result)
}

func printPage(c *cfg.Cfg, page *domain.Page) {
	if len(page.Items) == 0 {
		fmt.Println("no pastes")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tLANG\tBY\tCREATED")
	for _, item := range page.Items {
		title := item.Title
		if title == "" {
			title = "untitled"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.ID, title, item.Language, item.CreatedBy, item.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
	fmt.Printf("page %d of %d pastes total\n", page.Page, page.Total)
}

func runStats(a *app) {
	ctx, cancel := opCtx(a.cfg)
	defer cancel()
	stats, err := a.client.Stats(ctx)
	if err != nil {
		fail(err, "failed to fetch stats")
	}
	fmt.Printf("pastes: %d\nusers:  %d\nviews:  %d\n", stats.Pastes, stats.Users, stats.Views)
}

func runSignup(a *app, args []string) {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	username := fs.String("username", "", "account name")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if *username == "" || *email == "" {
		fmt.Fprintln(os.Stderr, "usage: oxypaste signup --username NAME --email ADDR")
		os.Exit(2)
	}
	password := promptPassword()

	ctx, cancel := opCtx(a.cfg)
	defer cancel()
	err := a.client.SignUp(ctx, domain.SignUpParams{
		Username: *username,
		Email:    *email,
		Password: password,
	})
	if err != nil {
		fail(err, "signup failed")
	}
	fmt.Println("account created, check your email for verification")
}

func runLogin(a *app, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "account name")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if *username == "" && fs.NArg() > 0 {
		*username = fs.Arg(0)
	}
	if *username == "" {
		fmt.Fprintln(os.Stderr, "usage: oxypaste login --username NAME")
		os.Exit(2)
	}
	password := promptPassword()

	ctx, cancel := opCtx(a.cfg)
	defer cancel()
	grant, err := a.client.Login(ctx, *username, password)
	if err != nil {
		fail(err, "login failed")
	}
	if err := a.tokens.Save(ctx, grant); err != nil {
		fail(err, "failed to store session token")
	}
	fmt.Printf("logged in as %s (expires %s)\n", *username, grant.ExpireAt.Format(time.RFC3339))
}

func runLogout(a *app) {
	ctx, cancel := opCtx(a.cfg)
	defer cancel()
	if err := a.tokens.Clear(ctx); err != nil {
		fail(err, "failed to clear session token")
	}
	fmt.Println("logged out")
}

func runWhoami(a *app) {
	ctx, cancel := opCtx(a.cfg)
	defer cancel()
	username, err := a.client.Verify(ctx)
	if err != nil {
		if domain.IsAuthorization(err) {
			fmt.Fprintln(os.Stderr, "not logged in")
			os.Exit(1)
		}
		fail(err, "failed to verify session")
	}
	fmt.Println(username)
}

// promptPassword reads a password from stdin. OXYPASTE_PASSWORD wins
// when set so scripts never have to pipe secrets through a tty.
func promptPassword() string {
	if env := os.Getenv("OXYPASTE_PASSWORD"); env != "" {
		return env
	}
	fmt.Fprint(os.Stderr, "password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(os.Stderr, "failed to read password")
		os.Exit(2)
	}
	return strings.TrimRight(line, "\r\n")
}
