// Package report renders timelock history snapshots for people and machines.
package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pickle-finance/timelock-viewer/timelock"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Format is an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatMarkdown, FormatJSON, FormatYAML}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatText, FormatMarkdown, FormatJSON, FormatYAML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q, expected one of %v", s, Formats)
	}
}

// DefaultExplorerURL is the block explorer linked from markdown reports.
const DefaultExplorerURL = "https://etherscan.io"

type options struct {
	rawTarget   bool
	rawData     bool
	explorerURL string
}

// Option configures a Renderer.
type Option func(*options)

// WithRawTarget shows target addresses instead of their names.
func WithRawTarget(raw bool) Option {
	return func(o *options) { o.rawTarget = raw }
}

// WithRawData shows the scheduled call data as hex instead of decoded arguments.
func WithRawData(raw bool) Option {
	return func(o *options) { o.rawData = raw }
}

// WithExplorerURL sets the block explorer base URL used for links.
func WithExplorerURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.explorerURL = strings.TrimSuffix(url, "/")
		}
	}
}

// Renderer writes a snapshot in one format.
type Renderer interface {
	Format() Format
	Render(w io.Writer, snap *timelock.Snapshot) error
}

// New returns the renderer for format.
func New(format Format, opts ...Option) (Renderer, error) {
	o := options{explorerURL: DefaultExplorerURL}
	for _, opt := range opts {
		opt(&o)
	}

	switch format {
	case FormatText, FormatMarkdown:
		return newTemplateRenderer(format, o)
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatYAML:
		return yamlRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

type jsonRenderer struct{}

func (jsonRenderer) Format() Format { return FormatJSON }

func (jsonRenderer) Render(w io.Writer, snap *timelock.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot as JSON: %w", err)
	}

	return nil
}

type yamlRenderer struct{}

func (yamlRenderer) Format() Format { return FormatYAML }

func (yamlRenderer) Render(w io.Writer, snap *timelock.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot as YAML: %w", err)
	}

	return enc.Close()
}

// templateRenderer renders the "snapshot" template of the embedded set for its format.
type templateRenderer struct {
	format Format
	opts   options
	tmpl   *template.Template
}

func newTemplateRenderer(format Format, o options) (*templateRenderer, error) {
	r := &templateRenderer{format: format, opts: o}

	name := string(format) + ".tmpl"
	tmpl, err := template.New(name).Funcs(r.funcMap()).ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", format, err)
	}
	if tmpl.Lookup("snapshot") == nil {
		return nil, fmt.Errorf("%s template does not define \"snapshot\"", format)
	}
	r.tmpl = tmpl

	return r, nil
}

func (r *templateRenderer) Format() Format { return r.format }

func (r *templateRenderer) Render(w io.Writer, snap *timelock.Snapshot) error {
	if err := r.tmpl.ExecuteTemplate(w, "snapshot", r.view(snap)); err != nil {
		return fmt.Errorf("failed to render %s report: %w", r.format, err)
	}

	return nil
}

type snapshotView struct {
	Address      string
	ReferenceNow string
	Rows         []rowView
	Dropped      []timelock.DroppedRow
}

type rowView struct {
	Index          int
	TxHash         string
	Function       string
	Status         timelock.Status
	SettlingTxHash string
	Timelock       string
	Time           string
	Target         string
	Value          string
	Signature      string
	Data           string
	Eta            string
	Params         []timelock.HumanizedParam
	Receipt        timelock.ReceiptStatus
	DecodeError    string
}

func (r *templateRenderer) view(snap *timelock.Snapshot) snapshotView {
	v := snapshotView{
		Address:      snap.Address,
		ReferenceNow: snap.ReferenceNow.UTC().Format(time.RFC3339),
		Rows:         make([]rowView, 0, len(snap.Records)),
		Dropped:      snap.Dropped,
	}
	for _, rec := range snap.Records {
		v.Rows = append(v.Rows, r.rowView(rec))
	}

	return v
}

func (r *templateRenderer) rowView(rec timelock.Record) rowView {
	row := rowView{
		Index:          rec.Index,
		TxHash:         rec.TxHash,
		Function:       rec.Function,
		Status:         rec.Status,
		SettlingTxHash: rec.SettlingTxHash,
		Timelock:       rec.TimelockName,
		Time:           rec.TimestampDisplay,
		Target:         rec.TargetDisplay,
		Value:          rec.Value,
		Signature:      rec.Signature,
		Data:           rec.Data,
		Eta:            rec.EtaDisplay,
		Params:         rec.Params,
		Receipt:        rec.Receipt,
		DecodeError:    rec.DecodeError,
	}
	if row.Timelock == "" {
		row.Timelock = rec.Timelock
	}
	if r.opts.rawTarget {
		row.Target = rec.Target
	}
	if r.opts.rawData || (row.Data == "" && rec.RawData != "") {
		row.Data = rec.RawData
	}
	if rec.Signature == "" {
		parts := make([]string, 0, len(rec.Params))
		for _, p := range rec.Params {
			parts = append(parts, p.Name+": "+p.Display)
		}
		row.Data = strings.Join(parts, ", ")
	}

	return row
}

func (r *templateRenderer) funcMap() template.FuncMap {
	return template.FuncMap{
		"txLink": func(hash, text string) string {
			return fmt.Sprintf("[%s](%s/tx/%s)", escapeCell(text), r.opts.explorerURL, hash)
		},
		"addressLink": func(addr string) string {
			return fmt.Sprintf("[%s](%s/address/%s)", addr, r.opts.explorerURL, addr)
		},
		"status": func(row rowView) string {
			if row.Status == "" {
				return ""
			}
			if row.SettlingTxHash == "" {
				return string(row.Status)
			}

			return fmt.Sprintf("[%s](%s/tx/%s)", row.Status, r.opts.explorerURL, row.SettlingTxHash)
		},
		"cell": escapeCell,
		"code": func(s string) string {
			if s == "" {
				return ""
			}

			return "`" + escapeCell(s) + "`"
		},
	}
}

// escapeCell keeps s on one markdown table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")

	return strings.ReplaceAll(s, "\n", " ")
}
