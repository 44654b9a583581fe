// Command classify submits one mammogram image to the classifier service and
// prints the outcome. With -report it also exports the diagnosis report to
// the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/mammoguard/internal/config"
	"github.com/JaimeStill/mammoguard/internal/infrastructure"
	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/internal/previews"
	"github.com/JaimeStill/mammoguard/internal/reports"
	"github.com/JaimeStill/mammoguard/internal/workflow"
)

var errFailed = errors.New("prediction failed")

func main() {
	var (
		endpoint = flag.String("endpoint", "", "Classifier endpoint URL (overrides config)")
		report   = flag.Bool("report", false, "Export a diagnosis report for a successful prediction")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: classify [-endpoint URL] [-report] <image>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal("load .env failed: ", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}
	if *endpoint != "" {
		cfg.Classifier.Endpoint = *endpoint
		if err := cfg.Classifier.Finalize(nil); err != nil {
			log.Fatal("invalid endpoint: ", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Arg(0), *report, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "classify:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, path string, report bool, out io.Writer) error {
	file, err := readImage(path)
	if err != nil {
		return err
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return err
	}
	defer infra.Close()

	logger := infra.Logger.With("module", "classify")

	ctrl := workflow.New(
		predictions.NewClient(&cfg.Classifier, logger),
		previews.New(cfg.Session.PreviewSize, logger),
		logger,
	)
	defer ctrl.Close()

	snapshots, cancel := ctrl.Subscribe()
	defer cancel()

	if err := ctrl.SelectFile(ctx, file); err != nil {
		return err
	}

	var settled workflow.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return workflow.ErrClosed
				}
				if snap.State == workflow.Settled {
					settled = snap
					return nil
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	g.Go(func() error {
		return ctrl.Submit(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	result := settled.Result
	if result == nil || !result.OK() {
		fmt.Fprintf(out, "Prediction: %s\nConfidence: %s\n", predictions.ErrorClass, reports.FormatConfidence(0))
		if result != nil {
			return fmt.Errorf("%w: %v", errFailed, result.Reason())
		}
		return errFailed
	}

	fmt.Fprintf(out, "File: %s\nPrediction: %s\nConfidence: %s\n%s\n",
		file.Name,
		result.Class(),
		reports.FormatConfidence(result.Confidence()),
		result.Advisory(),
	)

	if !report {
		return nil
	}

	sub, ok := settled.Current()
	if !ok {
		return workflow.ErrNoResult
	}

	if err := infra.Start(); err != nil {
		return err
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		return err
	}
	defer infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())

	exp, err := reports.NewGenerator(infra.Storage, logger).Render(ctx, sub)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Report: %s\n", exp.Name)
	return nil
}

func readImage(path string) (*workflow.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &workflow.File{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}
