package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"

	"github.com/gostones/s3transfer/internal"
	"github.com/gostones/s3transfer/internal/client"
	"github.com/gostones/s3transfer/internal/config"
	"github.com/gostones/s3transfer/internal/transfer"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitTransfer     = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "upload":
		return runUpload(cmdArgs)
	case "download":
		return runDownload(cmdArgs)
	case "remove":
		return runRemove(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: client <command> [options]

Commands:
  upload    Upload a local file, in parts when larger than the chunk size
  download  Download an object to a local file
  remove    Delete an object

Common options:
  -config   YAML config file
  -url      relay server URL
  -mode     direct (presigned URLs) or relayed (through the server)`)
}

// common holds the flags shared by every command.
type common struct {
	configPath string
	url        string
	mode       string
	chunkSize  string
	expires    time.Duration
	verbose    bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML config file")
	fs.StringVar(&c.url, "url", "", "relay server URL")
	fs.StringVar(&c.mode, "mode", "", "transfer mode: direct or relayed")
	fs.StringVar(&c.chunkSize, "chunk-size", "", "part size, e.g. 5MB")
	fs.DurationVar(&c.expires, "expires", 0, "presigned URL validity")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
}

// client builds the transfer client from config, environment and flags.
func (c *common) client() (*transfer.Client, config.Config, zerolog.Logger, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(c.configPath); err != nil {
			return nil, cfg, zerolog.Nop(), err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, cfg, zerolog.Nop(), err
	}
	if c.url != "" {
		cfg.Server.URL = c.url
	}
	if c.mode != "" {
		cfg.Mode = c.mode
	}
	if c.chunkSize != "" {
		size, err := config.ParseBytes(c.chunkSize)
		if err != nil {
			return nil, cfg, zerolog.Nop(), err
		}
		cfg.ChunkSize = size
	}
	if c.expires > 0 {
		cfg.Sign.Expires = c.expires
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, zerolog.Nop(), err
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	tc, err := transfer.New(client.NewRemote(cfg.Server.URL, nil), transfer.Config{
		ChunkSize: cfg.ChunkSize,
		Mode:      cfg.TransferMode(),
		Observer:  progress(logger),
		Logger:    &logger,
	})
	return tc, cfg, logger, err
}

// progress reports part completion as a running byte total.
func progress(logger zerolog.Logger) transfer.Observer {
	var sent int64
	debug := transfer.LogObserver(logger)
	return transfer.ObserverFunc(func(e transfer.Event) {
		debug.Notify(e)
		switch e.Type {
		case transfer.EventSessionInitiated:
			sent = 0
		case transfer.EventPartCompleted:
			sent += e.Size
			logger.Info().
				Str("id", e.ID).
				Int64("part", e.PartNumber).
				Str("sent", units.HumanSize(float64(sent))).
				Msg("part uploaded")
		}
	})
}

func runUpload(args []string) int {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	var c common
	c.register(fs)
	id := fs.String("id", "", "object id (default: file name)")
	file := fs.String("file", "", "file to upload")
	contentType := fs.String("type", "", "media type (default: sniffed)")
	md5 := fs.Bool("md5", false, "send Content-MD5 with every put")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "upload: -file is required")
		return ExitInvalidArgs
	}

	tc, cfg, logger, err := c.client()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitInvalidArgs
	}

	f, err := internal.OpenFile(*file, *contentType)
	if err != nil {
		logger.Error().Err(err).Str("file", *file).Msg("open file")
		return ExitGeneralError
	}
	defer f.Close()
	if *id == "" {
		*id = f.Name()
	}

	logger.Info().
		Str("id", *id).
		Str("file", f.Filename()).
		Str("contentType", f.ContentType()).
		Str("size", units.HumanSize(float64(f.Size()))).
		Int("parts", internal.Chunks(f.Size(), cfg.ChunkSize)).
		Str("mode", tc.Mode().String()).
		Msg("upload")

	if *md5 {
		_, sum, err := f.MD5()
		if err != nil {
			logger.Error().Err(err).Str("file", *file).Msg("md5")
			return ExitGeneralError
		}
		logger.Info().Str("id", *id).Str("md5", sum).Msg("file digest")
	}

	defer internal.TimeTrack(logger, "upload "+*id)(time.Now())
	result, err := tc.Upload(context.Background(), *id, f, &transfer.Options{
		Expires:    cfg.Sign.Expires,
		ContentMD5: *md5,
	})
	if err != nil {
		logger.Error().Err(err).Str("id", *id).Msg("upload failed")
		return ExitTransfer
	}
	logger.Info().
		Str("id", result.ID).
		Str("etag", result.ETag).
		Int("parts", result.Parts).
		Str("location", result.Location).
		Msg("upload succeeded")
	return ExitSuccess
}

func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	var c common
	c.register(fs)
	id := fs.String("id", "", "object id")
	out := fs.String("out", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "download: -id is required")
		return ExitInvalidArgs
	}

	tc, cfg, logger, err := c.client()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitInvalidArgs
	}

	obj, err := tc.Download(context.Background(), *id, &transfer.Options{Expires: cfg.Sign.Expires})
	if err != nil {
		logger.Error().Err(err).Str("id", *id).Msg("download failed")
		return ExitTransfer
	}
	if *out == "" {
		if _, err := os.Stdout.Write(obj.Buffer); err != nil {
			return ExitGeneralError
		}
	} else if err := os.WriteFile(*out, obj.Buffer, 0644); err != nil {
		logger.Error().Err(err).Str("out", *out).Msg("write file")
		return ExitGeneralError
	}
	logger.Info().
		Str("id", *id).
		Str("contentType", obj.ContentType).
		Str("size", units.HumanSize(float64(len(obj.Buffer)))).
		Msg("download succeeded")
	return ExitSuccess
}

func runRemove(args []string) int {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	var c common
	c.register(fs)
	id := fs.String("id", "", "object id")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "remove: -id is required")
		return ExitInvalidArgs
	}

	tc, _, logger, err := c.client()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitInvalidArgs
	}
	if err := tc.Remove(context.Background(), *id); err != nil {
		logger.Error().Err(err).Str("id", *id).Msg("remove failed")
		return ExitTransfer
	}
	logger.Info().Str("id", *id).Msg("removed")
	return ExitSuccess
}
