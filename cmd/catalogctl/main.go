// Command catalogctl is the admin console CLI: review plan requests and manage the catalog.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/and161185/vazadinhas/internal/convert"
)

// Globals are shared by every command.
type Globals struct {
	Server      string        `help:"API base URL" default:"http://localhost:8080" env:"CATALOGCTL_SERVER"`
	AdminPrefix string        `help:"admin route prefix" default:"/admin10" env:"CATALOGCTL_ADMIN_PREFIX"`
	Timeout     time.Duration `help:"request timeout" default:"15s"`
	NoCache     bool          `help:"keep the HTTP cache in memory only"`

	out io.Writer        `kong:"-"`
	hc  *http.Client     `kong:"-"`
	now func() time.Time `kong:"-"`
}

func (g *Globals) writer() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

func (g *Globals) clock() time.Time {
	if g.now == nil {
		return time.Now()
	}
	return g.now()
}

func (g *Globals) httpClient() *http.Client {
	if g.hc == nil {
		dir := cacheDir()
		if g.NoCache {
			dir = ""
		}
		g.hc = newHTTPClient(dir)
	}
	return g.hc
}

func (g *Globals) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.Timeout)
}

// authed builds a client carrying the stored session token.
func (g *Globals) authed() (*apiClient, error) {
	tf, err := loadToken(g.Server, g.clock())
	if err != nil {
		return nil, err
	}
	return newAPIClient(g, g.httpClient(), tf.AccessToken), nil
}

func (g *Globals) printJSON(v any) error {
	enc := json.NewEncoder(g.writer())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type LoginCmd struct {
	Email    string `arg:"" help:"admin email"`
	Password string `help:"password" env:"CATALOGCTL_PASSWORD" required:""`
}

func (c *LoginCmd) Run(g *Globals) error {
	ctx, cancel := g.ctx()
	defer cancel()

	var s convert.Session
	cl := newAPIClient(g, g.httpClient(), "")
	if err := cl.do(ctx, http.MethodPost, "/api/auth/sign-in", convert.Credentials{Email: c.Email, Password: c.Password}, &s); err != nil {
		return err
	}
	if err := saveToken(tokenFile{AccessToken: s.Token, Email: s.Email, Server: g.Server, ExpiresAt: s.ExpiresAt}); err != nil {
		return err
	}
	role := "user"
	if s.Admin {
		role = "admin"
	}
	_, err := fmt.Fprintf(g.writer(), "signed in as %s (%s) until %s\n", s.Email, role, s.ExpiresAt.Format(time.RFC3339))
	return err
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(g *Globals) error {
	cl, err := g.authed()
	if err == nil {
		ctx, cancel := g.ctx()
		defer cancel()
		if err := cl.do(ctx, http.MethodPost, "/api/auth/sign-out", nil, nil); err != nil {
			fmt.Fprintf(os.Stderr, "sign-out: %v\n", err)
		}
	}
	return clearToken()
}

type PendingCmd struct{}

func (c *PendingCmd) Run(g *Globals) error {
	cl, err := g.authed()
	if err != nil {
		return err
	}
	ctx, cancel := g.ctx()
	defer cancel()

	var out []convert.Subscription
	if err := cl.do(ctx, http.MethodGet, cl.adminPath("/subscriptions/pending"), nil, &out); err != nil {
		return err
	}
	return g.printJSON(out)
}

type ApproveCmd struct {
	ID string `arg:"" help:"subscription record id"`
}

func (c *ApproveCmd) Run(g *Globals) error {
	cl, err := g.authed()
	if err != nil {
		return err
	}
	ctx, cancel := g.ctx()
	defer cancel()

	var out convert.Subscription
	if err := cl.do(ctx, http.MethodPost, cl.adminPath("/subscriptions/"+url.PathEscape(c.ID)+"/approve"), nil, &out); err != nil {
		return err
	}
	return g.printJSON(out)
}

type RejectCmd struct {
	ID string `arg:"" help:"subscription record id"`
}

func (c *RejectCmd) Run(g *Globals) error {
	cl, err := g.authed()
	if err != nil {
		return err
	}
	ctx, cancel := g.ctx()
	defer cancel()

	if err := cl.do(ctx, http.MethodDelete, cl.adminPath("/subscriptions/"+url.PathEscape(c.ID)), nil, nil); err != nil {
		return err
	}
	_, err = fmt.Fprintf(g.writer(), "rejected %s\n", c.ID)
	return err
}

type ItemsCmd struct {
	Genre           string `help:"filter by genre"`
	Query           string `short:"q" help:"title substring"`
	IncludeInactive bool   `help:"include soft-deleted items"`
	Public          bool   `help:"use the public, cacheable listing"`
}

func (c *ItemsCmd) Run(g *Globals) error {
	q := url.Values{}
	if c.Genre != "" {
		q.Set("genre", c.Genre)
	}
	if c.Query != "" {
		q.Set("q", c.Query)
	}

	var (
		cl  *apiClient
		err error
	)
	path := "/api/items"
	if c.Public {
		cl = newAPIClient(g, g.httpClient(), "")
	} else {
		if cl, err = g.authed(); err != nil {
			return err
		}
		path = cl.adminPath("/items")
		if c.IncludeInactive {
			q.Set("include_inactive", "true")
		}
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	ctx, cancel := g.ctx()
	defer cancel()
	var out []convert.Item
	if err := cl.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return err
	}
	return g.printJSON(out)
}

type AddItemCmd struct {
	Title       string   `required:"" help:"title"`
	Thumbnail   string   `required:"" help:"thumbnail URL"`
	Playable    string   `required:"" help:"embeddable player URL or embed markup"`
	Genre       string   `required:"" help:"genre"`
	Description string   `help:"description"`
	Duration    string   `help:"duration label, e.g. 16 eps"`
	Tags        []string `help:"comma separated tags"`
}

func (c *AddItemCmd) Run(g *Globals) error {
	cl, err := g.authed()
	if err != nil {
		return err
	}
	ctx, cancel := g.ctx()
	defer cancel()

	in := convert.ItemInput{
		Title:         c.Title,
		Description:   c.Description,
		ThumbnailURL:  c.Thumbnail,
		PlayableRef:   c.Playable,
		Genre:         c.Genre,
		DurationLabel: c.Duration,
		Tags:          c.Tags,
	}
	var out convert.Item
	if err := cl.do(ctx, http.MethodPost, cl.adminPath("/items"), in, &out); err != nil {
		return err
	}
	return g.printJSON(out)
}

type CLI struct {
	Globals

	Login   LoginCmd   `cmd:"" help:"sign in and store the session token"`
	Logout  LogoutCmd  `cmd:"" help:"sign out and forget the token"`
	Pending PendingCmd `cmd:"" help:"list plan requests awaiting review"`
	Approve ApproveCmd `cmd:"" help:"approve a plan request (30 days from now)"`
	Reject  RejectCmd  `cmd:"" help:"reject (delete) a plan request"`
	Items   ItemsCmd   `cmd:"" help:"list catalog items"`
	AddItem AddItemCmd `cmd:"" name:"add-item" help:"create a catalog item"`
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("catalogctl"),
		kong.Description("Admin console for the catalog API."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
