package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobfeed/internal/etl"
	"jobfeed/internal/etl/sources"
	"jobfeed/internal/logger"
	"jobfeed/internal/storage"
	"jobfeed/internal/vantaa"
)

// VantaaOptions configures the Vantaa open applications pipeline.
type VantaaOptions struct {
	SourceURL  string
	Timeout    time.Duration
	Descriptor string
	Table      string

	// InputFile, when set, replaces the HTTP fetch with a local JSON file
	// holding a saved copy of the feed.
	InputFile string
}

// VantaaFactory returns an EngineFactory wiring the HTTP fetcher, the
// Vantaa transformer and a TableWriter. Each run opens its own connection
// and closes it when the run ends.
func VantaaFactory(opts VantaaOptions, log *zap.SugaredLogger) EngineFactory {
	log = logger.OrNop(log)
	table := opts.Table
	if table == "" {
		table = vantaa.TableName
	}

	return func(context.Context) (*etl.Engine, func() error, error) {
		writer, err := storage.NewTableWriter(opts.Descriptor, table, vantaa.Columns(), log.Named("persister"))
		if err != nil {
			return nil, nil, err
		}
		var src etl.Source = sources.NewHTTPSource(opts.SourceURL, opts.Timeout, vantaa.RawSchema(), log.Named("fetcher"))
		if opts.InputFile != "" {
			src = &sources.FileSource{Path: opts.InputFile, Schema: vantaa.RawSchema(), Logger: log.Named("fetcher")}
		}
		return &etl.Engine{
			Source:      src,
			Transformer: vantaa.NewTransformer(),
			Dest:        writer,
		}, writer.Close, nil
	}
}
