package broker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/appcourier/appcourier/internal/archive"
	"github.com/appcourier/appcourier/internal/domain"
	"github.com/appcourier/appcourier/internal/fetcher"
	"github.com/appcourier/appcourier/internal/history"
	"github.com/appcourier/appcourier/internal/infra/config"
	"github.com/appcourier/appcourier/internal/infra/logger"
	"github.com/appcourier/appcourier/internal/session"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Prober resolves a catalog identifier to the first viable mirror source.
type Prober interface {
	Probe(ctx context.Context, identifier string) (*domain.ResolvedDownload, error)
}

// Fetcher streams a resolved URL to local storage with throttled progress.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string, onProgress fetcher.ProgressFunc) (*fetcher.Result, error)
}

// Inspector classifies and extracts container archive entries.
type Inspector interface {
	Inspect(localPath string) (*archive.Inspection, error)
	Extract(e archive.Entry) ([]byte, error)
}

// Deps bundles the collaborators a Service drives.
type Deps struct {
	Transport domain.Transport
	Catalog   domain.Catalog
	Sessions  *session.Store
	Prober    Prober
	Fetcher   Fetcher
	Inspector Inspector
	History   history.Store // optional
	Fs        afero.Fs
}

// Service is the delivery orchestrator: it turns inbound chat events into
// catalog searches, pending selections and, once a selection lands, drives
// probe -> fetch -> inspect -> deliver for that conversation.
//
// Runs for different conversations proceed in parallel; runs for the same
// conversation are serialized on a per-conversation lock, so a message that
// arrives mid-download waits instead of racing the in-flight delivery.
type Service struct {
	cfg *config.Config
	log *logger.Logger

	transport domain.Transport
	catalog   domain.Catalog
	sessions  *session.Store
	prober    Prober
	fetcher   Fetcher
	inspector Inspector
	history   history.Store
	fs        afero.Fs

	convLocks sync.Map // conversation id -> *sync.Mutex
}

func NewService(cfg *config.Config, log *logger.Logger, d Deps) *Service {
	return &Service{
		cfg:       cfg,
		log:       log,
		transport: d.Transport,
		catalog:   d.Catalog,
		sessions:  d.Sessions,
		prober:    d.Prober,
		fetcher:   d.Fetcher,
		inspector: d.Inspector,
		history:   d.History,
		fs:        d.Fs,
	}
}

// HandleEvent is the single entry point for inbound chat events. It never
// returns an error: every failure is converted into one user-visible
// notification and the conversation goes back to idle.
func (s *Service) HandleEvent(ctx context.Context, ev domain.InboundEvent) {
	if ev.FromSelf {
		return
	}

	if ev.Vote != nil {
		s.withConversationLock(ev.ConversationID, func() {
			s.handleVote(ctx, ev.ConversationID, ev.Vote)
		})
		return
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}

	s.withConversationLock(ev.ConversationID, func() {
		// A live list session means this text is a selection attempt, not
		// a new search.
		if s.sessions.Has(ev.ConversationID) {
			idx, err := strconv.Atoi(text)
			if err != nil {
				s.notify(ctx, ev.ConversationID, "Please reply with a number from the list.")
				return
			}
			s.handleSelection(ctx, ev.ConversationID, ev.ConversationID, idx)
			return
		}

		s.handleSearch(ctx, ev.ConversationID, text)
	})
}

func (s *Service) withConversationLock(conversationID string, fn func()) {
	v, _ := s.convLocks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	fn()
}

// handleSearch covers Idle -> Searching -> AwaitingSelection.
func (s *Service) handleSearch(ctx context.Context, conversationID, term string) {
	s.notify(ctx, conversationID, "🔍 Searching the app catalog...")
	s.log.Info("search %q for %s", term, conversationID)

	candidates, err := s.catalog.Search(ctx, term)
	if err != nil {
		s.log.Error("search failed for %q: %v", term, err)
		s.notify(ctx, conversationID, "❌ The search failed. Please try again.")
		return
	}

	if len(candidates) == 0 {
		s.notify(ctx, conversationID, "❌ No results found. Try another app name.")
		return
	}

	if len(candidates) > s.cfg.Chat.MaxOptions {
		candidates = candidates[:s.cfg.Chat.MaxOptions]
	}

	if s.cfg.Chat.SelectionMode == "poll" {
		options := make([]string, 0, len(candidates))
		for i, c := range candidates {
			options = append(options, FormatOptionLabel(i+1, c))
		}

		pollID, err := s.transport.SendPoll(ctx, conversationID, "📱 Pick an app to download:", options)
		if err != nil {
			s.log.Error("send poll failed: %v", err)
			s.notify(ctx, conversationID, "❌ Could not present the choices. Please try again.")
			return
		}

		// the vote comes back keyed by the poll message id
		s.sessions.Put(pollID, candidates)
		s.log.Info("poll %s pending with %d candidates", pollID, len(candidates))
		return
	}

	if _, err := s.transport.SendText(ctx, conversationID, renderSearchList(candidates)); err != nil {
		s.log.Error("send list failed: %v", err)
		return
	}
	s.sessions.Put(conversationID, candidates)
}

func (s *Service) handleVote(ctx context.Context, conversationID string, vote *domain.VoteUpdate) {
	idx, err := ParseOptionIndex(vote.OptionLabel)
	if err != nil {
		s.log.Warn("unparseable vote label %q on poll %s", vote.OptionLabel, vote.PollMessageID)
		s.notify(ctx, conversationID, "❌ Could not read that vote. Please vote again.")
		return
	}

	s.handleSelection(ctx, conversationID, vote.PollMessageID, idx)
}

// handleSelection covers AwaitingSelection -> Resolving. Index errors keep
// the session alive; expiry and absence end the exchange.
func (s *Service) handleSelection(ctx context.Context, conversationID, sessionKey string, index int) {
	candidate, err := s.sessions.Resolve(sessionKey, index)
	switch {
	case errors.Is(err, domain.ErrIndexOutOfRange):
		s.notify(ctx, conversationID, "Please send a valid number from the list.")
		return
	case errors.Is(err, domain.ErrSessionExpired):
		s.notify(ctx, conversationID, "⏱️ That list expired. Send the app name again.")
		return
	case errors.Is(err, domain.ErrSessionNotFound):
		s.notify(ctx, conversationID, "There is nothing to pick right now. Send an app name to search.")
		return
	case err != nil:
		s.log.Error("resolve selection: %v", err)
		return
	}

	s.log.Info("selection %d -> %s for %s", index, candidate.Identifier, conversationID)
	s.deliver(ctx, conversationID, candidate)
}

// deliver drives Resolving -> Downloading -> PostProcessing -> Delivering for
// one consumed selection. The temp file never outlives the attempt.
func (s *Service) deliver(ctx context.Context, conversationID string, candidate domain.CatalogCandidate) {
	rec := history.NewRecord(conversationID, candidate.Identifier, candidate.Title)
	defer s.saveRecord(rec)

	s.sendAppInfo(ctx, conversationID, candidate)

	// Resolving
	s.notify(ctx, conversationID, "🔍 Looking for the best download source...")

	resolved, err := s.prober.Probe(ctx, candidate.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNoSource) {
			s.failRun(ctx, rec, conversationID, domain.StageResolving, err,
				"❌ Sorry, no download link could be found for this app. Try another one.")
		} else {
			s.failRun(ctx, rec, conversationID, domain.StageResolving, err,
				"❌ Resolving the download was interrupted. Please try again.")
		}
		return
	}

	rec.SourceName = resolved.SourceName
	rec.ArtifactKind = string(resolved.Kind)

	// Downloading
	if err := s.fs.MkdirAll(s.cfg.Download.TempDir, 0755); err != nil {
		s.failRun(ctx, rec, conversationID, domain.StageDownloading, err,
			"❌ The download failed. Please try again later.")
		return
	}

	stem := SanitizeFilename(candidate.Title)
	tempPath := filepath.Join(s.cfg.Download.TempDir,
		fmt.Sprintf("%s_%s.%s", uuid.NewString(), stem, resolved.Kind.Ext()))

	// cleanup on every exit path, success and failure alike
	defer func() {
		if err := s.fs.Remove(tempPath); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
			s.log.Debug("temp cleanup %s: %v", tempPath, err)
		}
	}()

	progressID, _ := s.transport.SendText(ctx, conversationID, renderProgress(0, resolved.Kind))

	result, err := s.fetcher.Fetch(ctx, resolved.FinalURL, tempPath, func(pct int) {
		if progressID == "" || pct == 0 {
			return
		}
		// progress is advisory; a dropped edit must not abort the download
		if err := s.transport.EditText(ctx, conversationID, progressID, renderProgress(pct, resolved.Kind)); err != nil {
			s.log.Debug("progress edit failed: %v", err)
		}
	})
	if err != nil {
		s.failRun(ctx, rec, conversationID, domain.StageDownloading, err,
			"❌ The download failed. Please try again later.")
		return
	}

	rec.BytesTotal = result.BytesWritten
	s.notify(ctx, conversationID,
		fmt.Sprintf("✅ Download complete (%s).\n📤 Uploading...", formatBytes(result.BytesWritten)))

	// PostProcessing + Delivering
	if resolved.Kind.IsContainer() {
		err = s.deliverContainer(ctx, conversationID, candidate, resolved, tempPath, stem)
	} else {
		err = s.deliverFile(ctx, conversationID, candidate, resolved, tempPath, stem)
	}
	if err != nil {
		s.failRun(ctx, rec, conversationID, domain.StageDelivering, err,
			"❌ Sending the file failed. It may be too large for the chat.")
		return
	}

	rec.Status = domain.RunCompleted
	s.notify(ctx, conversationID, "💚 Done! Thanks for using the app courier.")
	s.log.Info("delivered %s to %s via %s (%s)",
		candidate.Identifier, conversationID, resolved.SourceName, formatBytes(result.BytesWritten))
}

// deliverFile sends a plain package artifact as-is.
func (s *Service) deliverFile(ctx context.Context, conversationID string, candidate domain.CatalogCandidate, resolved *domain.ResolvedDownload, tempPath, stem string) error {
	data, err := afero.ReadFile(s.fs, tempPath)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	return s.transport.SendDocument(ctx, conversationID, domain.Document{
		Filename: stem + "." + resolved.Kind.Ext(),
		MimeType: resolved.Kind.MimeType(),
		Caption: fmt.Sprintf("✅ %s\n📦 %s | %s",
			candidate.Title, strings.ToUpper(resolved.Kind.Ext()), formatBytes(int64(len(data)))),
		Data: data,
	})
}

// deliverContainer inspects a container archive and relays its payload: the
// primary package first, then up to the configured number of auxiliary
// files, each independently allowed to fail.
func (s *Service) deliverContainer(ctx context.Context, conversationID string, candidate domain.CatalogCandidate, resolved *domain.ResolvedDownload, tempPath, stem string) error {
	insp, err := s.inspector.Inspect(tempPath)
	if err != nil {
		// no installable base package, or not a readable archive at all:
		// hand over the raw container unmodified
		s.log.Warn("container inspection of %s: %v", candidate.Identifier, err)
		if ferr := s.deliverFile(ctx, conversationID, candidate, resolved, tempPath, stem); ferr != nil {
			return ferr
		}
		s.notify(ctx, conversationID, "⚠️ Use SAI (Split APKs Installer) to install this package.")
		return nil
	}

	primary, err := s.inspector.Extract(*insp.Primary)
	if err != nil {
		return fmt.Errorf("extract primary: %w", err)
	}

	caption := fmt.Sprintf("✅ %s\n📦 APK (extracted from %s) | %s",
		candidate.Title, strings.ToUpper(resolved.Kind.Ext()), formatBytes(int64(len(primary))))
	if n := len(insp.Splits); n > 0 {
		caption += fmt.Sprintf("\n⚠️ Ships with %d split file(s)", n)
	}
	if n := len(insp.Auxiliary); n > 0 {
		caption += fmt.Sprintf("\n🎮 Ships with %d OBB file(s)", n)
	}

	err = s.transport.SendDocument(ctx, conversationID, domain.Document{
		Filename: stem + ".apk",
		MimeType: domain.KindPackage.MimeType(),
		Caption:  caption,
		Data:     primary,
	})
	if err != nil {
		return fmt.Errorf("send primary: %w", err)
	}

	s.relayAuxiliary(ctx, conversationID, candidate, insp.Auxiliary)

	if len(insp.Splits) > 0 {
		s.notify(ctx, conversationID, fmt.Sprintf(
			"⚠️ This app uses %d split APK(s). Install with SAI or grab the full %s.",
			len(insp.Splits), strings.ToUpper(resolved.Kind.Ext())))
	}

	return nil
}

// relayAuxiliary sends auxiliary data files best-effort: one failure is
// reported for that artifact only and the rest still go out.
func (s *Service) relayAuxiliary(ctx context.Context, conversationID string, candidate domain.CatalogCandidate, entries []archive.Entry) {
	limit := s.cfg.Download.MaxAuxFiles
	if len(entries) == 0 || limit <= 0 {
		return
	}

	relay := entries
	if len(relay) > limit {
		relay = relay[:limit]
	}

	s.notify(ctx, conversationID, fmt.Sprintf("📦 Relaying %d data file(s)...", len(relay)))

	for i, e := range relay {
		if e.TooLargeToRelay {
			s.notify(ctx, conversationID, fmt.Sprintf(
				"⚠️ Data file too large to relay: %s (%s). Fetch it from the mirror directly.",
				e.BaseName(), formatBytes(e.Size)))
			continue
		}

		data, err := s.inspector.Extract(e)
		if err != nil {
			s.log.Error("extract auxiliary %s: %v", e.Name, err)
			s.notify(ctx, conversationID, fmt.Sprintf("⚠️ Could not extract %s.", e.BaseName()))
			continue
		}

		err = s.transport.SendDocument(ctx, conversationID, domain.Document{
			Filename: e.BaseName(),
			MimeType: "application/octet-stream",
			Caption: fmt.Sprintf("🎮 Data file %d/%d: %s (%s)\n📁 Put it in: Android/obb/%s/",
				i+1, len(relay), e.BaseName(), formatBytes(e.Size), candidate.Identifier),
			Data: data,
		})
		if err != nil {
			s.log.Error("send auxiliary %s: %v", e.Name, err)
			s.notify(ctx, conversationID, fmt.Sprintf("⚠️ Sending %s failed.", e.BaseName()))
		}
	}

	if rest := len(entries) - len(relay); rest > 0 {
		s.notify(ctx, conversationID, fmt.Sprintf(
			"💡 %d more data file(s) were not relayed; fetch them from the mirror.", rest))
	}
}

// sendAppInfo shows details and icon before the download starts. Both are
// best-effort decoration.
func (s *Service) sendAppInfo(ctx context.Context, conversationID string, candidate domain.CatalogCandidate) {
	details, err := s.catalog.Details(ctx, candidate.Identifier)
	if err != nil {
		s.log.Warn("details for %s: %v", candidate.Identifier, err)
		s.notify(ctx, conversationID, fmt.Sprintf("✅ Selected: %s", candidate.Title))
		return
	}

	s.notify(ctx, conversationID, renderAppInfo(details))

	if details.IconURL != "" {
		if err := s.transport.SendImage(ctx, conversationID, details.IconURL, details.Title); err != nil {
			s.log.Debug("icon relay failed: %v", err)
		}
	}
}

// failRun emits exactly one user-visible error for the failed stage and
// marks the history record.
func (s *Service) failRun(ctx context.Context, rec *history.Record, conversationID string, stage domain.Stage, err error, userMsg string) {
	s.log.Error("run failed at %s for %s: %v", stage, conversationID, err)

	rec.Status = domain.RunFailed
	rec.Stage = string(stage)
	rec.Error = err.Error()

	s.notify(ctx, conversationID, userMsg)
}

func (s *Service) notify(ctx context.Context, conversationID, text string) {
	if _, err := s.transport.SendText(ctx, conversationID, text); err != nil {
		s.log.Warn("notify %s failed: %v", conversationID, err)
	}
}

func (s *Service) saveRecord(rec *history.Record) {
	if s.history == nil {
		return
	}

	if rec.Status == "" {
		rec.Status = domain.RunFailed
	}
	rec.FinishedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.history.Save(ctx, rec); err != nil {
		s.log.Error("history save %s: %v", rec.ID, err)
	}
}
