package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/docid"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/sourcecode"
	"github.com/akfbtn1-netizen/docflow/modules/docs/domain/workflowevent"
)

// Extraction methods.
const (
	MethodMarkers    = "Markers"
	MethodFullObject = "FullObject"
)

// Sections from multiple marker pairs are concatenated with this delimiter,
// in order of appearance.
const sectionDelimiter = "\n\n"

// ExtractionResult is the outcome of scanning a source object definition for
// change markers.
type ExtractionResult struct {
	Code       string
	Method     string
	MatchCount int
	Warning    string
}

// ExtractionService fetches a source object's definition and extracts the
// subrange bounded by change markers keyed by the correlation key. Extraction
// is required input to draft generation, so store failures here are fatal;
// a missing object or missing markers degrade to warnings instead.
type ExtractionService struct {
	source     sourcecode.DefinitionSource
	events     *EventLogService
	notify     *asyncNotifier
	retryDelay time.Duration
	log        *logrus.Entry
}

func NewExtractionService(
	source sourcecode.DefinitionSource,
	events *EventLogService,
	notifier Notifier,
	retryDelay time.Duration,
	log *logrus.Entry,
) *ExtractionService {
	l := log.WithField("component", "extraction")
	return &ExtractionService{
		source:     source,
		events:     events,
		notify:     newAsyncNotifier(notifier, l),
		retryDelay: retryDelay,
		log:        l,
	}
}

// ExtractMarkedCode returns nil without error when the object does not exist;
// the caller proceeds without source documentation.
func (s *ExtractionService) ExtractMarkedCode(ctx context.Context, id docid.ID, objectName, correlationKey string) (*ExtractionResult, error) {
	wf := id.WorkflowID()
	startedAt := time.Now()
	s.events.Record(ctx, wf, workflowevent.TypeCodeExtraction, workflowevent.StatusInProgress,
		fmt.Sprintf("extracting code for %s keyed by %s", objectName, correlationKey))

	definition, err := s.fetchDefinition(ctx, objectName)
	switch {
	case errors.Is(err, sourcecode.ErrObjectNotFound):
		msg := fmt.Sprintf("source object %s not found; continuing without source documentation", objectName)
		s.events.Record(ctx, wf, workflowevent.TypeCodeExtraction, workflowevent.StatusWarning, msg)
		s.notify.send(ctx, Notification{
			Title:    "Source object not found",
			Body:     msg,
			Severity: SeverityWarning,
			DocID:    id,
		})
		return nil, nil
	case err != nil:
		s.events.RecordTimed(ctx, wf, workflowevent.TypeCodeExtraction, workflowevent.StatusFailed,
			fmt.Sprintf("definition fetch for %s failed: %v", objectName, err), startedAt, nil)
		s.notify.send(ctx, Notification{
			Title:    "Code extraction failed",
			Body:     fmt.Sprintf("definition fetch for %s failed: %v", objectName, err),
			Severity: SeverityError,
			DocID:    id,
		})
		return nil, err
	}

	result := ExtractSections(definition, correlationKey)
	if result.Method == MethodFullObject {
		s.notify.send(ctx, Notification{
			Title:    "Change markers missing",
			Body:     result.Warning,
			Severity: SeverityWarning,
			DocID:    id,
		})
	}

	s.events.RecordTimed(ctx, wf, workflowevent.TypeCodeExtraction, workflowevent.StatusCompleted,
		fmt.Sprintf("extracted %s via %s (%d match(es))", objectName, result.Method, result.MatchCount),
		startedAt, map[string]any{"method": result.Method, "match_count": result.MatchCount})
	return result, nil
}

// fetchDefinition retries exactly once on a transient store error with a
// fixed backoff. A second failure surfaces as the store's native error.
func (s *ExtractionService) fetchDefinition(ctx context.Context, objectName string) (string, error) {
	definition, err := s.source.Definition(ctx, objectName)
	if err == nil || !isTransientStoreError(err) {
		return definition, err
	}

	s.log.WithError(err).WithField("object", objectName).Warn("transient store error, retrying definition fetch")
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.retryDelay):
	}
	return s.source.Definition(ctx, objectName)
}

// Marker grammar: three interchangeable syntaxes, case-insensitive, keyed by
// the correlation key. The key is escaped so regex metacharacters in ticket
// references cannot break the scan.
func markerPatterns(correlationKey string) []*regexp.Regexp {
	key := regexp.QuoteMeta(correlationKey)
	return []*regexp.Regexp{
		regexp.MustCompile(`(?is)--[^\S\n]*BEGIN[^\S\n]+DOC[^\S\n]+` + key + `[^\n]*\n(.*?)--[^\S\n]*END[^\S\n]+DOC[^\S\n]+` + key),
		regexp.MustCompile(`(?is)--[^\S\n]*START[^\S\n]+DOC[^\S\n]+` + key + `[^\n]*\n(.*?)--[^\S\n]*END[^\S\n]+DOC[^\S\n]+` + key),
		regexp.MustCompile(`(?is)/\*[^\S\n]*BEGIN\s+DOC\s+` + key + `\s*\*/(.*?)/\*[^\S\n]*END\s+DOC\s+` + key + `\s*\*/`),
	}
}

type markerSpan struct {
	start, end int
	body       string
}

// ExtractSections scans definition for marker pairs keyed by correlationKey.
// Matches are taken in order of appearance and overlapping matches are
// dropped so nested or doubled markers never double-count. Zero matches fall
// back to the full definition with a warning.
func ExtractSections(definition, correlationKey string) *ExtractionResult {
	var spans []markerSpan
	for _, re := range markerPatterns(correlationKey) {
		for _, m := range re.FindAllStringSubmatchIndex(definition, -1) {
			spans = append(spans, markerSpan{
				start: m[0],
				end:   m[1],
				body:  definition[m[2]:m[3]],
			})
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var sections []string
	lastEnd := -1
	for _, sp := range spans {
		if sp.start < lastEnd {
			continue
		}
		sections = append(sections, strings.TrimSpace(sp.body))
		lastEnd = sp.end
	}

	if len(sections) == 0 {
		return &ExtractionResult{
			Code:       definition,
			Method:     MethodFullObject,
			MatchCount: 0,
			Warning:    fmt.Sprintf("no change markers found for %q; captured the full object definition", correlationKey),
		}
	}

	return &ExtractionResult{
		Code:       strings.Join(sections, sectionDelimiter),
		Method:     MethodMarkers,
		MatchCount: len(sections),
	}
}
