package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/jmagar/mdimg/internal/api"
	"github.com/jmagar/mdimg/internal/config"
	"github.com/jmagar/mdimg/internal/helpers"
	"github.com/jmagar/mdimg/internal/model"
	"github.com/jmagar/mdimg/internal/rewrite"
	"github.com/jmagar/mdimg/internal/ui"
)

// Exit codes.
const (
	exitOK          = 0
	exitFatal       = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func init() {
	model.ArgsDescriptionFunc = argsDescription
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, argv []string) int {
	ui.ResetCounters()

	args, parser, err := config.ParseArgs(argv)
	if err != nil {
		switch {
		case errors.Is(err, arg.ErrHelp):
			parser.WriteHelp(os.Stdout)
			return exitOK
		case parser != nil:
			parser.WriteUsage(os.Stderr)
		}
		ui.PrintError(err.Error())
		return exitUsage
	}

	if args.Save {
		path, err := config.SaveCredentials(args)
		if err != nil {
			ui.PrintError(fmt.Sprintf("Failed to save config: %v", err))
			return exitFatal
		}
		ui.PrintSuccess("Config saved to " + path)
		return exitOK
	}

	cfg, err := config.Resolve(args)
	if err != nil {
		ui.PrintError(fmt.Sprintf("Error: %v", err))
		return exitFatal
	}
	if config.LoadedConfigPath != "" {
		ui.PrintInfo("Using config " + config.LoadedConfigPath)
	}

	reqLog := openRequestLog(cfg.LogFile)
	defer reqLog.Close()
	client := api.NewClient(cfg, reqLog)

	if cfg.ImagePath != "" {
		err = uploadSingleImage(ctx, cfg, client)
	} else {
		err = processDocument(ctx, cfg, client)
	}
	if err != nil {
		if ctx.Err() != nil {
			ui.PrintError("Interrupted")
			return exitInterrupted
		}
		ui.PrintError(fmt.Sprintf("Error: %v", err))
		return exitFatal
	}
	return exitOK
}

// openRequestLog opens the request log, or returns nil (logging disabled)
// when it is turned off or cannot be opened.
func openRequestLog(path string) *api.RequestLog {
	if path == "" || path == config.LogDisabled {
		return nil
	}
	reqLog, err := api.OpenRequestLog(path)
	if err != nil {
		ui.PrintWarning(fmt.Sprintf("Request log disabled: %v", err))
		return nil
	}
	return reqLog
}

// processDocument rewrites cfg.DocPath and saves the result next to it.
// Per-image failures are reported by the rewriter and never returned.
func processDocument(ctx context.Context, cfg *model.Config, up model.ImageUploader) error {
	ui.PrintInfo("Processing markdown file " + cfg.DocPath + "...")
	text, err := helpers.ReadDocument(cfg.DocPath)
	if err != nil {
		return err
	}

	r := rewrite.New(up)
	r.SkipCode = cfg.SkipCode
	newText, outcomes := r.Rewrite(ctx, text, filepath.Dir(cfg.DocPath), cfg.AlbumID)
	if err := ctx.Err(); err != nil {
		return err
	}

	newPath, err := helpers.SaveMarkdown(cfg.DocPath, cfg.Suffix, newText)
	if err != nil {
		return err
	}
	ui.PrintOutcomeSummary(outcomes)
	fmt.Println()
	if failed := countFailed(outcomes); failed > 0 {
		ui.PrintWarning(fmt.Sprintf("%d image(s) kept their original reference", failed))
	}
	ui.PrintSuccess("Done! New file saved as: " + newPath)
	return nil
}

func countFailed(outcomes []model.ImageOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == model.OutcomeFailed {
			n++
		}
	}
	return n
}

// uploadSingleImage uploads cfg.ImagePath and prints every link format.
func uploadSingleImage(ctx context.Context, cfg *model.Config, up model.ImageUploader) error {
	path, err := filepath.Abs(cfg.ImagePath)
	if err != nil {
		return err
	}
	size := int64(-1)
	if info, statErr := os.Stat(path); statErr == nil {
		size = info.Size()
	}
	ui.PrintUpload(fmt.Sprintf("Uploading %s (%s) to album %s", cfg.ImagePath, ui.DescribeSize(size), cfg.AlbumID))
	res, err := up.Upload(ctx, model.UploadRequest{LocalPath: path, AlbumID: cfg.AlbumID})
	if err != nil {
		return err
	}
	ui.PrintSuccess("Upload succeeded")
	ui.PrintUploadResult(res)
	return nil
}

func argsDescription() string {
	return fmt.Sprintf("%smdimg%s uploads the local images of a Markdown file and writes a copy with hosted URLs.\n\n"+
		"  mdimg post.md 3            %s writes post_uploaded.md next to post.md\n"+
		"  mdimg --image cat.png 3    %s uploads one image and prints its links\n"+
		"  mdimg --save --token TOKEN %s stores the token in ~/.mdimg/config.json\n\n"+
		"The token can also come from %s or the \"token\" key of the config file.",
		ui.ColorBold, ui.ColorReset,
		ui.SymbolArrow, ui.SymbolArrow, ui.SymbolArrow,
		config.EnvToken)
}
