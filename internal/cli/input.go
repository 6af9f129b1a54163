// Package cli drives a single search field from the terminal, for debugging
// matching and selection without a client.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/cardserve/internal/utils"
	"github.com/bastiangx/cardserve/pkg/catalog"
	"github.com/bastiangx/cardserve/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const fieldID = "cli"

var (
	matchStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	focusStyle = lipgloss.NewStyle().Reverse(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// InputHandler reads lines from stdin. Plain lines replace the field value,
// lines starting with "/" are keys, clicks and cache commands.
type InputHandler struct {
	board    *suggest.Board
	field    *suggest.Field
	provider *catalog.Provider
	limit    int
	in       io.Reader
	out      io.Writer

	list []suggest.Candidate
}

// NewInputHandler creates a handler with one field. prefix pins the field
// to a category, "" accepts qualified values like "t:cre". provider may be
// nil, which disables /info and /refresh.
func NewInputHandler(engine *suggest.Engine, provider *catalog.Provider, minLen, limit int, prefix string) *InputHandler {
	h := &InputHandler{
		provider: provider,
		limit:    limit,
		in:       os.Stdin,
		out:      os.Stdout,
	}
	h.board = suggest.NewBoard(engine, minLen,
		suggest.WithBoardRenderer(h),
		suggest.WithBoardSubmitter(suggest.SubmitFunc(h.submit)))

	var opts []suggest.FieldOption
	if prefix != "" {
		opts = append(opts, suggest.WithPrefix(prefix))
	}
	h.field = h.board.Attach(fieldID, opts...)
	return h
}

// SetIO replaces stdin and stdout.
func (h *InputHandler) SetIO(in io.Reader, out io.Writer) {
	h.in = in
	h.out = out
}

// Start runs the input loop until stdin ends.
func (h *InputHandler) Start(ctx context.Context) error {
	log.Print("CardServe CLI [BETA]")
	log.Print("type a query, or /help for commands (Ctrl+C to exit):")

	scanner := bufio.NewScanner(h.in)
	for {
		fmt.Fprint(h.out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		h.handleLine(ctx, strings.TrimRight(scanner.Text(), "\r\n"))
	}
}

func (h *InputHandler) handleLine(ctx context.Context, line string) {
	if !strings.HasPrefix(line, "/") {
		start := time.Now()
		err := h.field.Input(ctx, strings.TrimSpace(line))
		log.Debugf("Took [ %v ] for %q", time.Since(start), line)
		h.warn(err)
		if !h.field.Selection().IsOpen() && utils.RuneLen(strings.TrimSpace(line)) > 0 {
			fmt.Fprintln(h.out, dimStyle.Render("no suggestions"))
		}
		return
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	switch cmd {
	case "down", "up", "enter", "esc", "tab", "right":
		before := h.field.Value()
		consumed, err := h.field.Key(ctx, suggest.ParseKey(cmd))
		h.warn(err)
		if !consumed {
			fmt.Fprintln(h.out, dimStyle.Render("(ignored)"))
		}
		if v := h.field.Value(); v != before {
			fmt.Fprintf(h.out, "value: %s\n", v)
		}
	case "click":
		i, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || i < 1 {
			log.Errorf("usage: /click N (1-based)")
			return
		}
		h.board.Click(suggest.CandidateOf(h.field.ListID(), i-1))
	case "outside":
		h.board.Click(suggest.Outside())
	case "blur":
		h.field.Blur()
	case "info":
		h.printInfo()
	case "refresh":
		h.refresh(ctx)
	case "help":
		h.printHelp()
	default:
		log.Errorf("unknown command: /%s", cmd)
	}
}

// Render prints the candidate list.
func (h *InputHandler) Render(list suggest.List) {
	h.list = list.Candidates
	h.printList(list.Focus)
}

// Focus reprints the list with the focused row highlighted.
func (h *InputHandler) Focus(_ string, index int) {
	h.printList(index)
}

// Close drops the printed list.
func (h *InputHandler) Close(string) {
	if h.list != nil {
		fmt.Fprintln(h.out, dimStyle.Render("(list closed)"))
	}
	h.list = nil
}

func (h *InputHandler) submit(_, value string) {
	fmt.Fprintf(h.out, "submitted: %s\n", value)
}

func (h *InputHandler) printList(focus int) {
	shown := h.list
	if h.limit > 0 && len(shown) > h.limit {
		shown = shown[:h.limit]
	}
	for i, c := range shown {
		row := fmt.Sprintf("%2d. %s", i+1, highlight(c))
		if i == focus {
			row = focusStyle.Render(row)
		}
		fmt.Fprintln(h.out, row)
	}
	if len(shown) < len(h.list) {
		fmt.Fprintln(h.out, dimStyle.Render(fmt.Sprintf("... %d more", len(h.list)-len(shown))))
	}
}

func highlight(c suggest.Candidate) string {
	end := c.Start + c.Length
	return utils.RuneSlice(c.Value, 0, c.Start) +
		matchStyle.Render(utils.RuneSlice(c.Value, c.Start, end)) +
		utils.RuneSlice(c.Value, end, utils.RuneLen(c.Value))
}

func (h *InputHandler) printInfo() {
	if h.provider == nil {
		log.Warn("no catalog configured")
		return
	}
	info := h.provider.Info()

	fetched := "never"
	if !info.LastFetch.IsZero() {
		fetched = humanize.Time(info.LastFetch)
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"catalog", "entries"})
	tw.AppendRow(table.Row{"names", humanize.Comma(int64(info.Names))})
	tw.AppendRow(table.Row{"sets", humanize.Comma(int64(info.Sets))})
	tw.AppendRow(table.Row{"types", humanize.Comma(int64(info.Types))})
	tw.AppendFooter(table.Row{"fetched", fetched})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	fmt.Fprintln(h.out, tw.Render())

	if info.Stale {
		log.Warn("catalog is stale, next lookup refreshes it")
	}
}

func (h *InputHandler) refresh(ctx context.Context) {
	if h.provider == nil {
		log.Warn("no catalog configured")
		return
	}
	start := time.Now()
	if _, err := h.provider.Refresh(ctx); err != nil {
		log.Errorf("refresh failed: %v", err)
		return
	}
	log.Infof("catalog refreshed in %v", time.Since(start).Round(time.Millisecond))
	h.printInfo()
}

func (h *InputHandler) printHelp() {
	fmt.Fprintln(h.out, strings.Join([]string{
		"plain text     set the input value (t:cre, s:mh, name...)",
		"/down /up      move focus, /down on a closed list browses everything",
		"/enter         commit the focused candidate",
		"/esc           close the list",
		"/tab /right    copy the focused candidate into the input",
		"/click N       click candidate N",
		"/outside       click outside the field",
		"/blur          leave the field",
		"/info          catalog cache summary",
		"/refresh       refetch the catalog",
	}, "\n"))
}

func (h *InputHandler) warn(err error) {
	if err != nil {
		log.Warnf("catalog: %v", err)
	}
}
