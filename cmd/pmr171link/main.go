// pmr171link PMR-171 电台编程命令行。
//
// 用法: pmr171link [flags] <command>
//
// 命令:
//
//	ports    列出本机可用串口
//	info     查询设备型号
//	status   状态同步
//	meters   表头同步（需 --allow-unstable）
//	params   参数同步（需 --allow-unstable）
//	read     读取信道，--index 单条或 --all 全量，--file 存为 YAML
//	write    从 YAML 写入信道，--verify 写后复读比对
//	dump     read --all --file 的别名
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taoyao-code/pmr171-link/internal/bulk"
	"github.com/taoyao-code/pmr171-link/internal/codeplug"
	cfgpkg "github.com/taoyao-code/pmr171-link/internal/config"
	"github.com/taoyao-code/pmr171-link/internal/driver"
	"github.com/taoyao-code/pmr171-link/internal/logging"
	"github.com/taoyao-code/pmr171-link/internal/metrics"
	"github.com/taoyao-code/pmr171-link/internal/protocol/pmr171"
)

func main() {
	var (
		configPath  = pflag.String("config", "", "配置文件路径")
		portName    = pflag.String("port", "", "串口设备，覆盖配置文件")
		index       = pflag.Int("index", -1, "信道索引 (read)")
		all         = pflag.Bool("all", false, "全量 1000 信道 (read)")
		file        = pflag.String("file", "", "信道存档 YAML 路径 (read/write/dump)")
		verify      = pflag.Bool("verify", false, "写后复读比对 (write)")
		allowUnsafe = pflag.Bool("allow-unstable", false, "启用不稳定命令 (meters/params)")
		allowDMR    = pflag.Bool("allow-digital-write", false, "放行数字信道写入，实验性")
		verbose     = pflag.BoolP("verbose", "v", false, "debug 级日志")
	)
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	command := pflag.Arg(0)

	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *portName != "" {
		cfg.Serial.Port = *portName
	}
	if *allowUnsafe {
		cfg.Safety.AllowUnstable = true
	}
	if *allowDMR {
		cfg.Safety.AllowDigitalWrite = true
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	var met *metrics.Driver
	if cfg.Metrics.Enable {
		reg := metrics.NewRegistry()
		met = metrics.NewDriver(reg)
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler(reg))
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	// Ctrl-C 在信道边界停止批量操作
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, cfg, logger, met, cliArgs{
		index: *index, all: *all, file: *file, verify: *verify,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cliArgs struct {
	index  int
	all    bool
	file   string
	verify bool
}

func run(ctx context.Context, command string, cfg *cfgpkg.Config, logger *zap.Logger, met *metrics.Driver, args cliArgs) error {
	if command == "ports" {
		ports, err := driver.ListPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	if cfg.Serial.Port == "" {
		return fmt.Errorf("no serial port configured (--port or serial.port)")
	}
	d := driver.New(cfg, logger, met)
	if err := d.Connect(); err != nil {
		return err
	}
	defer func() { _ = d.Disconnect() }()

	switch command {
	case "info":
		id, err := d.Identify(ctx)
		if err != nil {
			return err
		}
		if id.Model != "" {
			fmt.Println("model:", id.Model)
		} else {
			fmt.Printf("model (raw): % X\n", id.Raw)
		}
		return nil

	case "status":
		st, err := d.QueryStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Println("vfo a mode:", st.VFOAMode)
		fmt.Println("vfo b mode:", st.VFOBMode)
		fmt.Printf("raw: % X\n", st.Raw)
		return nil

	case "meters":
		m, err := d.QueryMeters(ctx)
		if err != nil {
			return err
		}
		fmt.Println("s-meter:", m.SMeter)
		fmt.Println("power/swr:", m.PowerSWR)
		return nil

	case "params":
		p, err := d.QueryParameters(ctx)
		if err != nil {
			return err
		}
		fmt.Println("volume:", p.Volume)
		fmt.Println("rf gain:", p.RFGain)
		fmt.Println("squelch:", p.SquelchLevel, "mode:", p.SquelchMode)
		fmt.Println("power class:", p.PowerClass)
		fmt.Printf("raw: % X\n", p.Raw[:])
		return nil

	case "read":
		return runRead(ctx, d, args)

	case "dump":
		args.all = true
		if args.file == "" {
			return fmt.Errorf("dump requires --file")
		}
		return runRead(ctx, d, args)

	case "write":
		return runWrite(ctx, d, args)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runRead(ctx context.Context, d *driver.Driver, args cliArgs) error {
	var indices []int
	switch {
	case args.all:
		indices = nil // 全量
	case args.index >= 0:
		indices = []int{args.index}
	default:
		return fmt.Errorf("read requires --index or --all")
	}

	results, err := d.ReadAll(ctx, indices, progressPrinter())
	if err != nil {
		return err
	}

	var records []pmr171.ChannelRecord
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "channel %d: %v\n", res.Index, res.Err)
			continue
		}
		records = append(records, res.Record)
	}

	if args.file != "" {
		if err := codeplug.Save(args.file, codeplug.FromRecords(records)); err != nil {
			return err
		}
		fmt.Printf("saved %d channels to %s (%d failed)\n", len(records), args.file, failed)
		return nil
	}
	for _, rec := range records {
		if rec.Empty() {
			continue
		}
		printRecord(rec)
	}
	if failed > 0 {
		return fmt.Errorf("%d channels failed", failed)
	}
	return nil
}

func runWrite(ctx context.Context, d *driver.Driver, args cliArgs) error {
	if args.file == "" {
		return fmt.Errorf("write requires --file")
	}
	doc, err := codeplug.Load(args.file)
	if err != nil {
		return err
	}
	records, err := doc.Records()
	if err != nil {
		return err
	}

	results, err := d.WriteAll(ctx, records, progressPrinter())
	if err != nil {
		return err
	}
	failed := reportFailures(results)

	if args.verify {
		vres, err := d.VerifyAll(ctx, records, progressPrinter())
		if err != nil {
			return err
		}
		failed += reportFailures(vres)
	}
	if failed > 0 {
		return fmt.Errorf("%d channels failed", failed)
	}
	fmt.Printf("wrote %d channels\n", len(records))
	return nil
}

func reportFailures(results []bulk.WriteResult) int {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "channel %d: %v\n", res.Index, res.Err)
		}
	}
	return failed
}

func progressPrinter() bulk.Progress {
	return func(done, total int, msg string) {
		fmt.Fprintf(os.Stderr, "\r[%d/%d] %-40s", done, total, msg)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func printRecord(rec pmr171.ChannelRecord) {
	tone := func(idx uint8) string {
		if f, ok := pmr171.IndexToFrequency(idx); ok {
			return fmt.Sprintf("%d.%dHz", f/10, f%10)
		}
		return "-"
	}
	fmt.Printf("%4d  %-11s %-4s rx=%d tx=%d tones=%s/%s %s\n",
		rec.Index, rec.Name, rec.RxMode,
		rec.RxFreqHz, rec.TxFreqHz,
		tone(rec.RxTone), tone(rec.TxTone), rec.Kind)
}
