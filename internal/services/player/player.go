// Package player is the interactive terminal front-end. It reads one command
// per line and renders the session after each one.
package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
	"github.com/louisbranch/campaign-viewer/internal/platform/i18n"
	"github.com/louisbranch/campaign-viewer/internal/storage"
	"golang.org/x/text/message"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// Config wires a Player.
type Config struct {
	Session   *session.Session
	Campaigns storage.CampaignLister
	In        io.Reader
	Out       io.Writer
	Locale    string
	// Color enables ANSI styles. Leave it off for pipes and tests.
	Color bool
	// AutoSave writes the snapshot slot after every successful change.
	AutoSave bool
	Width    int
	Logger   *log.Logger
}

// Player runs the read-eval-print loop over a session.
type Player struct {
	session   *session.Session
	campaigns storage.CampaignLister
	in        *bufio.Scanner
	out       io.Writer
	locale    string
	printer   *message.Printer
	styles    styles
	width     int
	logger    *log.Logger
	autoSave  bool
	commands  map[string]command
}

// New validates cfg and builds a Player.
func New(cfg Config) (*Player, error) {
	if cfg.Session == nil {
		return nil, errors.New("session is required")
	}
	if cfg.In == nil || cfg.Out == nil {
		return nil, errors.New("input and output are required")
	}
	width := cfg.Width
	if width <= 0 {
		width = DefaultWidth
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	locale := cfg.Locale
	if tag, ok := i18n.ParseTag(locale); ok {
		locale = tag.String()
	} else {
		locale = i18n.DefaultTag().String()
	}
	p := &Player{
		session:   cfg.Session,
		campaigns: cfg.Campaigns,
		in:        bufio.NewScanner(cfg.In),
		out:       cfg.Out,
		locale:    locale,
		printer:   i18n.Printer(locale),
		styles:    newStyles(cfg.Color),
		width:     width,
		logger:    logger,
		autoSave:  cfg.AutoSave,
	}
	p.commands = p.commandTable()
	return p, nil
}

// Run restores saved progress and processes commands until quit, end of
// input or ctx is done.
func (p *Player) Run(ctx context.Context) error {
	p.println(p.styles.title.Sprint(p.printer.Sprintf("player.welcome")))

	// A saved campaign that fails to load leaves the session in Error,
	// which renderAfter shows; only cancellation stops the loop.
	restored, err := p.session.LoadProgress(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	if restored {
		p.println(p.printer.Sprintf("player.restored"))
		p.renderAfter()
	} else {
		p.println(p.printer.Sprintf("player.no_campaign"))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		p.prompt()
		if !p.in.Scan() {
			p.println("")
			return p.in.Err()
		}
		if quit := p.Exec(ctx, p.in.Text()); quit {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the player asked to quit.
func (p *Player) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]
	if name == "quit" || name == "exit" {
		p.println(p.printer.Sprintf("player.goodbye"))
		return true
	}
	cmd, ok := p.commands[name]
	if !ok {
		p.println(p.styles.warn.Sprint(p.printer.Sprintf("player.unknown_command", name)))
		if match, ok := suggestCommand(name, p.commandNames()); ok {
			p.println(p.printer.Sprintf("player.did_you_mean", match))
		}
		return false
	}
	if len(args) < cmd.minArgs {
		p.println(p.printer.Sprintf("player.usage", cmd.usage))
		return false
	}
	if err := cmd.run(ctx, args); err != nil {
		p.fail(err)
	}
	return false
}

// fail prints a localized error. Errors the session keeps are shown again by
// the session view, so only the message is printed here.
func (p *Player) fail(err error) {
	if apperrors.HasCode(err, apperrors.CodeSuperseded) {
		return
	}
	p.logger.Printf("command failed: %v", err)
	p.println(p.styles.err.Sprint(p.printer.Sprintf("player.error", apperrors.Localize(err, p.locale))))
}

func (p *Player) prompt() {
	label := "> "
	if v := p.session.View(); v.Scene != nil {
		label = v.Scene.ID + "> "
	}
	fmt.Fprint(p.out, p.styles.prompt.Sprint(label))
}

func (p *Player) println(s string) {
	fmt.Fprintln(p.out, s)
}
