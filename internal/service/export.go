package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/chatexport/chatexport/internal/archive"
	"github.com/chatexport/chatexport/internal/config"
	"github.com/chatexport/chatexport/internal/drive"
	"github.com/chatexport/chatexport/internal/metrics"
	"github.com/chatexport/chatexport/internal/models"
	"github.com/chatexport/chatexport/internal/parser"
	"github.com/chatexport/chatexport/internal/render"
)

// Uploader is the remote side of an export. *drive.Client satisfies
// it; tests use a fake.
type Uploader interface {
	EnsureFolder(ctx context.Context, name string) (string, error)
	UploadDocument(ctx context.Context, folderID, name string, data []byte, convert bool) (string, error)
	UploadMedia(ctx context.Context, folderID, localPath string) (string, error)
}

// ExportService turns an export archive into rendered documents,
// either on local disk or in a Drive folder.
type ExportService struct {
	cfg       config.Config
	collector *metrics.Collector
}

// NewExportService creates an export service.
func NewExportService(cfg config.Config, collector *metrics.Collector) *ExportService {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &ExportService{cfg: cfg, collector: collector}
}

// Collector exposes the run's metrics.
func (s *ExportService) Collector() *metrics.Collector {
	return s.collector
}

// ExportObserver receives per-conversation progress. May be nil.
type ExportObserver func(done, total int)

// ExportResult summarizes an export run. Workers append warnings and
// errors concurrently through the add methods.
type ExportResult struct {
	Conversations  int
	Documents      int
	MediaExtracted int
	MediaUploaded  int
	Warnings       []string
	Errors         []string

	mu sync.Mutex
}

func (r *ExportResult) addWarning(format string, args ...any) {
	r.mu.Lock()
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *ExportResult) addError(format string, args ...any) {
	r.mu.Lock()
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// ConversationInfo is the listing view of an archived conversation.
type ConversationInfo struct {
	Title    string
	Created  string
	Messages int
}

// List returns summary rows for every conversation in the archive.
func (s *ExportService) List(ctx context.Context, archivePath string) ([]ConversationInfo, error) {
	a, err := archive.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	rc, err := a.Conversations()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var infos []ConversationInfo
	err = parser.StreamConversations(rc, func(conv *models.Conversation, convErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if convErr != nil {
			slog.Warn("skipping unreadable conversation", "error", convErr)
			return nil
		}
		thread, err := parser.Linearize(conv)
		if err != nil {
			slog.Warn("skipping conversation without thread", "title", conv.Title, "error", err)
			return nil
		}
		info := ConversationInfo{
			Title:    render.Title(conv),
			Messages: len(thread.Visible()),
		}
		if !conv.CreatedAt.IsZero() {
			info.Created = conv.CreatedAt.Format("2006-01-02")
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Count returns the number of conversation entries in the archive,
// including unparseable ones. Used to size progress before a run.
func (s *ExportService) Count(archivePath string) (int, error) {
	a, err := archive.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer a.Close()

	rc, err := a.Conversations()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	count := 0
	err = parser.StreamConversations(rc, func(*models.Conversation, error) error {
		count++
		return nil
	})
	return count, err
}

// Convert renders every conversation into local files under
// cfg.OutputDir, extracting referenced media alongside.
func (s *ExportService) Convert(ctx context.Context, archivePath string, observe ExportObserver) (*ExportResult, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	a, err := archive.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	resolver := archive.NewMediaResolver()
	result := &ExportResult{}

	mediaDir := filepath.Join(s.cfg.OutputDir, "media")
	err = s.collector.Time(metrics.OpMediaExtract, func() error {
		n, err := a.ExtractMedia(mediaDir, resolver)
		result.MediaExtracted = n
		return err
	})
	if err != nil {
		return nil, err
	}

	sink := &localSink{
		service:   s,
		outputDir: s.cfg.OutputDir,
		format:    s.cfg.Format,
		taken:     make(map[string]bool),
	}
	if err := s.processConversations(ctx, a, resolver, sink, result, observe); err != nil {
		return nil, err
	}
	return result, nil
}

// Upload renders every conversation and pushes the documents plus
// their media into a Drive folder. Media is extracted to a temporary
// directory that is removed afterwards.
func (s *ExportService) Upload(ctx context.Context, archivePath string, uploader Uploader, observe ExportObserver) (*ExportResult, error) {
	a, err := archive.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	folderID, err := uploader.EnsureFolder(ctx, s.cfg.DriveFolder)
	if err != nil {
		return nil, fmt.Errorf("ensure drive folder: %w", err)
	}

	mediaDir, err := os.MkdirTemp("", "chatexport-media-")
	if err != nil {
		return nil, fmt.Errorf("create media temp dir: %w", err)
	}
	defer os.RemoveAll(mediaDir)

	resolver := archive.NewMediaResolver()
	result := &ExportResult{}

	err = s.collector.Time(metrics.OpMediaExtract, func() error {
		n, err := a.ExtractMedia(mediaDir, resolver)
		result.MediaExtracted = n
		return err
	})
	if err != nil {
		return nil, err
	}

	sink := &driveSink{
		service:  s,
		uploader: uploader,
		folderID: folderID,
		resolver: resolver,
		convert:  s.cfg.ConvertToDocs,
		taken:    make(map[string]bool),
	}
	if err := s.processConversations(ctx, a, resolver, sink, result, observe); err != nil {
		return nil, err
	}
	result.MediaUploaded = int(sink.uploaded.Load())
	return result, nil
}

// documentSink writes one rendered conversation somewhere.
type documentSink interface {
	// prepare resolves media for the thread before rendering.
	prepare(ctx context.Context, thread *models.Thread, result *ExportResult) error
	write(ctx context.Context, thread *models.Thread) error
}

// processConversations is the shared worker-pool core of Convert and
// Upload: stream conversations off the archive, fan out to workers,
// aggregate errors without aborting the batch.
func (s *ExportService) processConversations(ctx context.Context, a *archive.Archive, resolver *archive.MediaResolver, sink documentSink, result *ExportResult, observe ExportObserver) error {
	total, err := s.Count(a.Path())
	if err != nil {
		return err
	}

	rc, err := a.Conversations()
	if err != nil {
		return err
	}
	defer rc.Close()

	var (
		done      atomic.Int32
		documents atomic.Int32
	)

	report := func() {
		if observe != nil {
			observe(int(done.Load()), total)
		}
	}

	concurrency := s.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	convChan := make(chan *models.Conversation, concurrency)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for conv := range convChan {
				if ctx.Err() != nil {
					done.Add(1)
					continue
				}

				if err := s.exportOne(ctx, conv, resolver, sink, result); err != nil {
					result.addError("%s: %v", render.Title(conv), err)
				} else {
					documents.Add(1)
				}

				slog.Debug("conversation processed", "worker", workerID, "title", conv.Title)
				done.Add(1)
				report()
			}
		}(i)
	}

	streamErr := parser.StreamConversations(rc, func(conv *models.Conversation, convErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if convErr != nil {
			result.addError("unreadable conversation: %v", convErr)
			done.Add(1)
			report()
			return nil
		}
		result.Conversations++
		convChan <- conv
		return nil
	})
	close(convChan)
	wg.Wait()

	if streamErr != nil {
		return streamErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	result.Documents = int(documents.Load())
	slog.Info("export complete",
		"conversations", result.Conversations,
		"documents", result.Documents,
		"errors", len(result.Errors))
	return nil
}

// exportOne runs the per-conversation pipeline: linearize, resolve
// media, render, write.
func (s *ExportService) exportOne(ctx context.Context, conv *models.Conversation, resolver *archive.MediaResolver, sink documentSink, result *ExportResult) error {
	var thread *models.Thread
	err := s.collector.Time(metrics.OpParse, func() error {
		var err error
		thread, err = parser.Linearize(conv)
		return err
	})
	if err != nil {
		return err
	}

	if err := sink.prepare(ctx, thread, result); err != nil {
		return err
	}

	for _, ref := range thread.MediaReferences() {
		if !resolver.Resolve(ref) {
			result.addWarning("%s: unresolved media %s", render.Title(conv), ref.Pointer)
		}
	}

	return sink.write(ctx, thread)
}

// localSink writes rendered documents into the output directory.
type localSink struct {
	service   *ExportService
	outputDir string
	format    string
	mu        sync.Mutex // guards taken
	taken     map[string]bool
}

func (ls *localSink) prepare(context.Context, *models.Thread, *ExportResult) error {
	return nil
}

func (ls *localSink) write(_ context.Context, thread *models.Thread) error {
	opts := render.Options{MediaBase: "media"}

	var (
		data []byte
		ext  string
	)
	err := ls.service.collector.Time(metrics.OpRender, func() error {
		if ls.format == config.FormatMarkdown {
			ext = ".md"
			data = render.Markdown(thread, opts)
			return nil
		}
		ext = ".html"
		var err error
		data, err = render.HTML(thread, opts)
		return err
	})
	if err != nil {
		return err
	}

	ls.mu.Lock()
	name := render.Filename(thread.Conversation, ext, ls.taken)
	ls.mu.Unlock()

	if err := os.WriteFile(filepath.Join(ls.outputDir, name), data, 0644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// driveSink uploads rendered documents and their media to Drive.
type driveSink struct {
	service  *ExportService
	uploader Uploader
	folderID string
	resolver *archive.MediaResolver
	convert  bool
	uploaded atomic.Int32
	mu       sync.Mutex // guards taken
	taken    map[string]bool
}

// prepare uploads each locally extracted asset the thread references
// and records the remote ID so later threads reuse it.
func (ds *driveSink) prepare(ctx context.Context, thread *models.Thread, result *ExportResult) error {
	for _, ref := range thread.MediaReferences() {
		id := archive.AssetID(ref.Pointer)
		if id == "" {
			continue
		}

		// Claim the upload; a lost claim means another worker either
		// finished it already or is finishing it right now.
		if _, claimed := ds.resolver.ClaimRemote(id); !claimed {
			continue
		}

		// Resolve locally first; nothing to upload if the asset is
		// missing from the archive.
		probe := models.MediaReference{Pointer: ref.Pointer}
		if !ds.resolver.Resolve(&probe) || probe.LocalPath == "" {
			ds.resolver.ReleaseRemote(id)
			continue
		}

		var remoteID string
		err := ds.service.collector.Time(metrics.OpUpload, func() error {
			var err error
			remoteID, err = ds.uploader.UploadMedia(ctx, ds.folderID, probe.LocalPath)
			return err
		})
		if err != nil {
			result.addWarning("upload media %s: %v", ref.Pointer, err)
			ds.resolver.ReleaseRemote(id)
			continue
		}
		ds.resolver.SetRemote(id, remoteID)
		ds.uploaded.Add(1)
	}
	return nil
}

func (ds *driveSink) write(ctx context.Context, thread *models.Thread) error {
	opts := render.Options{RemoteURL: drive.FileURL}

	var data []byte
	err := ds.service.collector.Time(metrics.OpRender, func() error {
		var err error
		data, err = render.HTML(thread, opts)
		return err
	})
	if err != nil {
		return err
	}

	ds.mu.Lock()
	name := render.Filename(thread.Conversation, ".html", ds.taken)
	ds.mu.Unlock()

	return ds.service.collector.Time(metrics.OpUpload, func() error {
		_, err := ds.uploader.UploadDocument(ctx, ds.folderID, name, data, ds.convert)
		return err
	})
}
