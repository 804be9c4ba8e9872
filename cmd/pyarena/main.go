package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"pyarena/internal/code"
	"pyarena/internal/config"
	"pyarena/internal/heap"
	"pyarena/internal/object"
	"pyarena/internal/semantics"
	"pyarena/internal/vm"
)

type options struct {
	n      int
	dis    bool
	color  bool
	maxMem int64
}

func main() {
	configPath := flag.String("config", "", "TOML or YAML configuration file")
	n := flag.Int("n", 1000, "workload iterations")
	disMode := flag.Bool("dis", false, "dump the bytecode of the workload's special methods")
	maxMem := flag.Int64("max-mem", 0, "heap budget in bytes (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
	}
	cfg.ConfigureLogging()

	opts := options{
		n:      *n,
		dis:    *disMode,
		color:  isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		maxMem: *maxMem,
	}
	if err := run(os.Stdout, cfg, opts); err != nil {
		fmt.Fprintln(os.Stderr, "run error:", err)
		os.Exit(1)
	}
}

func run(out io.Writer, cfg *config.Config, opts options) error {
	if opts.maxMem > 0 {
		cfg.Limits.MaxMemory = opts.maxMem
	}
	h := heap.New(cfg.Policy())
	m := vm.New(h)
	m.SetMaxFrames(cfg.Limits.MaxFrames)

	w := &workload{h: h, m: m}
	defer w.close()

	if err := w.setup(); err != nil {
		return err
	}
	if opts.dis {
		for _, name := range []string{"__add__", "__radd__"} {
			fn, _ := object.LookupClassAttr(h, w.cls, name)
			if f, ok := heap.Cast[*object.Function](h, fn); ok {
				fmt.Fprintf(out, "%s.%s:\n%s", "Meter", name, vm.Disassemble(h, f))
			}
		}
	}

	sum, err := w.sums(opts.n)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "sum        %s\n", sum)

	merged, err := w.merges(opts.n)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "merged     %s keys\n", humanize.Comma(int64(merged)))

	reading, err := w.meters(opts.n)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "meter      %s\n", reading)

	w.close()
	printStats(out, h.Stats(), opts.color)
	return nil
}

// workload owns the objects the smoke run shares between phases.
type workload struct {
	h   *heap.Heap
	m   *vm.VM
	cls heap.Value
}

// setup defines a class Meter whose __add__ defers to the other operand
// and whose __radd__ counts additions into self.total.
func (w *workload) setup() error {
	h := w.h
	add, err := h.Alloc(&object.Function{
		Name:         "__add__",
		Instructions: code.Concat(code.Make(code.OpConstant, 0), code.Make(code.OpReturnValue)),
		Constants:    []heap.Value{heap.NotImplemented},
		NumLocals:    2,
		NumParams:    2,
	})
	if err != nil {
		return err
	}
	radd, err := h.Alloc(&object.Function{
		Name: "__radd__",
		Instructions: code.Concat(
			code.Make(code.OpGetLocal, 0),
			code.Make(code.OpGetLocal, 0),
			code.Make(code.OpGetMember, 0),
			code.Make(code.OpGetLocal, 1),
			code.Make(code.OpBinary, int(vm.OpAdd)),
			code.Make(code.OpSetMember, 0),
			code.Make(code.OpGetLocal, 0),
			code.Make(code.OpReturnValue),
		),
		Constants: []heap.Value{h.Str("total")},
		NumLocals: 2,
		NumParams: 2,
	})
	if err != nil {
		h.Release(add)
		return err
	}
	w.cls, err = object.NewClass(h, "Meter", nil, map[string]heap.Value{"__add__": add, "__radd__": radd})
	return err
}

// sums adds values close to the int64 limit so the fast path promotes.
func (w *workload) sums(n int) (string, error) {
	acc := heap.Int(0)
	for i := 0; i < n; i++ {
		v, err := w.m.Execute(vm.OpAdd, acc, heap.Int(math.MaxInt64/2))
		if err != nil {
			return "", err
		}
		acc = v
	}
	s := semantics.Repr(w.h, acc)
	w.h.Release(acc)
	return s, nil
}

// merges grows one dict with |= from a fresh dict per iteration.
func (w *workload) merges(n int) (int, error) {
	h := w.h
	dst, err := h.Alloc(object.NewDict())
	if err != nil {
		return 0, err
	}
	defer h.Release(dst)
	for i := 0; i < n; i++ {
		src, err := h.Alloc(object.NewDict())
		if err != nil {
			return 0, err
		}
		if err := semantics.DictSetItem(h, src, heap.Int(int64(i%64)), heap.Int(int64(i))); err != nil {
			h.Release(src)
			return 0, err
		}
		v, err := w.m.ExecuteInplace(vm.OpOr, h.Clone(dst), src)
		if err != nil {
			return 0, err
		}
		h.Release(v)
	}
	l, _ := semantics.Len(h, dst)
	return l, nil
}

// meters drives int + Meter through the reflected special method.
func (w *workload) meters(n int) (string, error) {
	h := w.h
	meter, err := object.NewInstance(h, w.cls)
	if err != nil {
		return "", err
	}
	defer h.Release(meter)
	if err := object.SetAttr(h, meter, "total", heap.Int(0)); err != nil {
		return "", err
	}
	for i := 0; i < n; i++ {
		v, err := w.m.Execute(vm.OpAdd, heap.Int(int64(i)), h.Clone(meter))
		if err != nil {
			return "", err
		}
		h.Release(v)
	}
	total, err := semantics.GetAttr(h, meter, "total")
	if err != nil {
		return "", err
	}
	defer h.Release(total)
	return semantics.Repr(h, total), nil
}

func (w *workload) close() {
	w.h.Release(w.cls)
	w.cls = heap.None
}

func printStats(out io.Writer, st heap.Stats, color bool) {
	label := func(s string) string {
		if color {
			return "\x1b[1m" + s + "\x1b[0m"
		}
		return s
	}
	fmt.Fprintf(out, "%s live=%d allocated=%s freed=%s bytes=%s refused=%d\n",
		label("heap"), st.Live, humanize.Comma(int64(st.Allocated)), humanize.Comma(int64(st.Freed)),
		humanize.IBytes(uint64(max(st.Bytes, 0))), st.Refused)
	fmt.Fprintf(out, "%s increments=%s releases=%s cycle-candidates=%d open-borrows=%d\n",
		label("refs"), humanize.Comma(int64(st.Increments)), humanize.Comma(int64(st.Releases)),
		st.CycleCandidates, st.OpenBorrows)
}
