package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tvanderstad/parasol-db/internal/backup"
	serverrun "github.com/tvanderstad/parasol-db/internal/cmd/server"
	"github.com/tvanderstad/parasol-db/internal/eventlog"
	"github.com/tvanderstad/parasol-db/internal/filter"
	"github.com/tvanderstad/parasol-db/internal/kv"
	"github.com/tvanderstad/parasol-db/internal/runtime"
	"github.com/tvanderstad/parasol-db/internal/view"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

var errNotFound = errors.New("not found")

func newPutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put KEY VALUE",
		Short: "Set a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.apply(cmd, kv.Put(args[0], args[1]))
		},
	}
}

func newDelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del KEY",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.apply(cmd, kv.Del(args[0]))
		},
	}
}

func newClearCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.apply(cmd, kv.ClearAll())
		},
	}
}

// newApplyCommand constructs the `apply` subcommand, which writes a batch of
// newline-delimited JSON commands atomically.
func newApplyCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "apply",
		Short: "Write newline-delimited JSON commands from a file or stdin as one batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in io.Reader = cmd.InOrStdin()
			if path, _ := cmd.Flags().GetString("file"); path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			cmds, err := readCommands(in)
			if err != nil {
				return err
			}
			if len(cmds) == 0 {
				return errors.New("no commands")
			}
			return a.apply(cmd, cmds...)
		},
	}
	c.Flags().StringP("file", "f", "-", "Input file, - for stdin")
	return c
}

func readCommands(r io.Reader) ([]kv.Command, error) {
	var out []kv.Command
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var c kv.Command
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
	return out, sc.Err()
}

func (a *app) apply(cmd *cobra.Command, cmds ...kv.Command) error {
	return a.withStore(cmd, func(s *kv.Store) error {
		seq, err := s.Apply(cmd.Context(), cmds...)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "seq:", seq)
		return err
	})
}

// atFlag returns --at, or the store's current seq when the flag is unset.
func atFlag(cmd *cobra.Command, s *kv.Store) view.Seq {
	if cmd.Flags().Changed("at") {
		at, _ := cmd.Flags().GetUint64("at")
		return at
	}
	return s.CurrentSeq()
}

func newGetCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value of a key as of a seq",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s *kv.Store) error {
				v, ok := s.Get(atFlag(cmd, s), args[0])
				if !ok {
					return fmt.Errorf("%s: %w", args[0], errNotFound)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), v)
				return err
			})
		},
	}
	c.Flags().Uint64("at", 0, "Seq to read at (default current)")
	return c
}

func newStateCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "state",
		Short: "Print every key/value pair as of a seq",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(s *kv.Store) error {
				at := atFlag(cmd, s)
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"seq": at, "state": s.State(at)})
			})
		},
	}
	c.Flags().Uint64("at", 0, "Seq to read at (default current)")
	return c
}

func addRangeFlags(c *cobra.Command) {
	c.Flags().Uint64("from", 0, "Exclusive lower seq bound")
	c.Flags().Uint64("to", 0, "Inclusive upper seq bound (default current)")
	c.Flags().Bool("reverse", false, "Read newest-to-oldest")
	c.Flags().String("filter", "", `CEL filter over sequence, size, text, json and now_ms (e.g. json.op == "put")`)
	c.Flags().Int("limit", 0, "Stop after N records (0 = no limit)")
}

type rangeFlags struct {
	from, to view.Seq
	dir      view.Direction
	filter   filter.Filter
	limit    int
}

func readRangeFlags(cmd *cobra.Command, current view.Seq) (rangeFlags, error) {
	var r rangeFlags
	r.from, _ = cmd.Flags().GetUint64("from")
	r.to = current
	if cmd.Flags().Changed("to") {
		r.to, _ = cmd.Flags().GetUint64("to")
	}
	r.dir = view.Forward
	if rev, _ := cmd.Flags().GetBool("reverse"); rev {
		r.dir = view.Backward
	}
	r.limit, _ = cmd.Flags().GetInt("limit")
	expr, _ := cmd.Flags().GetString("filter")
	f, err := filter.Compile(expr)
	if err != nil {
		return r, fmt.Errorf("invalid --filter: %w", err)
	}
	r.filter = f
	return r, nil
}

func newScanCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "scan",
		Short: "Print the stored commands of a seq range as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(s *kv.Store) error {
				r, err := readRangeFlags(cmd, s.CurrentSeq())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, rec := range s.Find(r.from, r.to, r.dir, r.filter, r.limit) {
					if err := enc.Encode(record{Seq: rec.Seq, Command: rec.Event}); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	addRangeFlags(c)
	return c
}

func newVerifyCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "verify",
		Short: "Compare the index answer with a full replay of the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(s *kv.Store) error {
				seqs := []view.Seq{atFlag(cmd, s)}
				if all, _ := cmd.Flags().GetBool("all"); all {
					seqs = seqs[:0]
					for seq := view.Seq(0); seq <= s.CurrentSeq(); seq++ {
						seqs = append(seqs, seq)
					}
				}
				for _, seq := range seqs {
					if err := s.Verify(seq); err != nil {
						return err
					}
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "ok: %d seq(s) verified\n", len(seqs))
				return err
			})
		},
	}
	c.Flags().Uint64("at", 0, "Seq to verify at (default current)")
	c.Flags().Bool("all", false, "Verify every seq from 0 to current")
	return c
}

func newTablesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRuntime(func(rt *runtime.Runtime) error {
				tables, err := rt.Tables()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, t := range tables {
					if _, err := fmt.Fprintf(w, "%s\tcodec=%s\tcreatedAtMs=%d\n", t.Name, t.Codec, t.CreatedAtMs); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newMergeCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "merge TABLE [TABLE...]",
		Short: "Print several tables merged into one stream ordered by (seq, table position)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(func(rt *runtime.Runtime) error {
				merged, err := rt.Merge(args...)
				if err != nil {
					return err
				}
				r, err := readRangeFlags(cmd, merged.CurrentSeq())
				if err != nil {
					return err
				}
				v := view.Filtered[kv.Command](merged, filter.Predicate(r.filter, eventlog.JSONCodec[kv.Command]{}.Marshal))
				enc := json.NewEncoder(cmd.OutOrStdout())
				n := 0
				for seq, ev := range v.Scan(r.from, r.to, r.dir) {
					if err := enc.Encode(record{Seq: seq, Command: ev}); err != nil {
						return err
					}
					if n++; r.limit > 0 && n >= r.limit {
						break
					}
				}
				return nil
			})
		},
	}
	addRangeFlags(c)
	return c
}

func newExportCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "export",
		Short: "Export a table as JSON lines, optionally xz-compressed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("out")
			compress, _ := cmd.Flags().GetBool("xz")
			to, _ := cmd.Flags().GetUint64("to")
			return a.withStore(cmd, func(s *kv.Store) (err error) {
				w := cmd.OutOrStdout()
				if path != "" && path != "-" {
					f, cerr := os.Create(path)
					if cerr != nil {
						return cerr
					}
					defer func() {
						if cerr := f.Close(); err == nil {
							err = cerr
						}
					}()
					w = f
				}
				n, err := backup.Export(w, s, backup.ExportOptions{Compress: compress, To: to})
				if err != nil {
					return err
				}
				a.logger.Info("table exported", logpkg.Table(s.Name()), logpkg.Int("commands", n))
				return nil
			})
		},
	}
	c.Flags().StringP("out", "o", "-", "Output file, - for stdout")
	c.Flags().Bool("xz", false, "Compress the export with xz")
	c.Flags().Uint64("to", 0, "Last seq to export (default current)")
	return c
}

func newImportCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "import",
		Short: "Import an export (plain or xz) into a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			appendTo, _ := cmd.Flags().GetBool("append")
			batch, _ := cmd.Flags().GetInt("batch")
			var in io.Reader = cmd.InOrStdin()
			if path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return a.withStore(cmd, func(s *kv.Store) error {
				hdr, n, err := backup.Import(cmd.Context(), in, s, backup.ImportOptions{BatchSize: batch, Append: appendTo})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d command(s) from %s, seq: %d\n", n, hdr.Table, s.CurrentSeq())
				return err
			})
		},
	}
	c.Flags().StringP("file", "f", "-", "Input file, - for stdin")
	c.Flags().Bool("append", false, "Allow importing into a non-empty table")
	c.Flags().Int("batch", backup.DefaultBatchSize, "Commands per write batch")
	return c
}

func newServeCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the HTTP gateway, /metrics and optionally gRPC health",
		Aliases: []string{"server", "run"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("http")
			grpcAddr, _ := cmd.Flags().GetString("grpc")
			if err := serverrun.Run(cmd.Context(), serverrun.Options{
				HTTPAddr: addr,
				GRPCAddr: grpcAddr,
				Config:   a.cfg,
				Logger:   a.logger,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	c.Flags().String("http", envOr("PARASOL_HTTP", ":8080"), "HTTP listen address")
	c.Flags().String("grpc", os.Getenv("PARASOL_GRPC"), "gRPC health listen address (disabled when empty)")
	return c
}

// record is the JSON line printed per stored command.
type record struct {
	Seq view.Seq `json:"seq"`
	kv.Command
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
