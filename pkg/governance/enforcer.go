package governance

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dansasser/mcg-agent/pkg/models"
)

// TransformerDecision tells a stage how to run its text transformation.
type TransformerDecision struct {
	UseTransformer   bool   `json:"use_transformer"`
	CanFallbackToAPI bool   `json:"can_fallback_to_api"`
	Method           string `json:"method"` // transformer_only | transformer_primary | api_fallback
}

// Transformer decision methods.
const (
	MethodTransformerOnly    = "transformer_only"
	MethodTransformerPrimary = "transformer_primary"
	MethodAPIFallback        = "api_fallback"
)

// Authorizer decides whether a task may use the Summarizer's emergency API
// fallback. The default implementation always denies; the activation
// mechanism is deployment-specific.
type Authorizer interface {
	AuthorizeEmergency(taskID string) bool
}

// DenyAllAuthorizer denies every emergency fallback request.
type DenyAllAuthorizer struct{}

func (DenyAllAuthorizer) AuthorizeEmergency(string) bool { return false }

// Options tunes enforcer behavior.
type Options struct {
	// CorpusRateLimit is the max corpus queries per minute per task, stage
	// and corpus. Zero means the default of 10.
	CorpusRateLimit int
	// RetentionAge bounds how long task state is kept, counted from task
	// creation; the sweeper evicts older tasks whether or not they were
	// finalized. Zero means 24h.
	RetentionAge time.Duration
}

const (
	defaultCorpusRateLimit = 10
	defaultRetentionAge    = 24 * time.Hour
)

type rateKey struct {
	taskID string
	stage  models.Stage
	corpus models.Corpus
}

type rateWindow struct {
	start time.Time
	count int
}

type taskState struct {
	userID              string
	classification      string
	createdAt           time.Time
	corpusAccessCount   int
	retrievalQueryCount int
	rates               map[rateKey]*rateWindow
}

// Summary is the finalization result for a task.
type Summary struct {
	TaskID           string                   `json:"task_id"`
	UserID           string                   `json:"user_id,omitempty"`
	Classification   string                   `json:"classification,omitempty"`
	CallsByStage     map[models.Stage]int     `json:"calls_by_stage"`
	TotalAPICalls    int                      `json:"total_api_calls"`
	CorpusQueries    int                      `json:"corpus_queries"`
	RetrievalQueries int                      `json:"retrieval_queries"`
	ViolationCount   int                      `json:"violation_count"`
	Violations       []models.ViolationRecord `json:"violations,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	FinalizedAt      time.Time                `json:"finalized_at"`
}

// Enforcer validates every governed operation against the policy catalog and
// mutates per-task governance state. It is safe for concurrent use.
type Enforcer struct {
	catalog    *Catalog
	tracker    *CallTracker
	violations *ViolationLog
	authorizer Authorizer
	logger     *slog.Logger

	rateLimit int
	retention time.Duration

	mu        sync.Mutex
	tasks     map[string]*taskState
	summaries map[string]*Summary
}

// NewEnforcer builds an enforcer over the catalog with its own tracker and
// violation log.
func NewEnforcer(catalog *Catalog, opts Options) *Enforcer {
	rate := opts.CorpusRateLimit
	if rate <= 0 {
		rate = defaultCorpusRateLimit
	}
	retention := opts.RetentionAge
	if retention <= 0 {
		retention = defaultRetentionAge
	}
	return &Enforcer{
		catalog:    catalog,
		tracker:    NewCallTracker(),
		violations: NewViolationLog(),
		authorizer: DenyAllAuthorizer{},
		logger:     slog.Default().With("component", "governance"),
		rateLimit:  rate,
		retention:  retention,
		tasks:      make(map[string]*taskState),
		summaries:  make(map[string]*Summary),
	}
}

// SetAuthorizer replaces the emergency authorizer. Intended for wiring at
// startup, before tasks flow.
func (e *Enforcer) SetAuthorizer(a Authorizer) {
	if a != nil {
		e.authorizer = a
	}
}

// Catalog returns the policy catalog the enforcer validates against.
func (e *Enforcer) Catalog() *Catalog { return e.catalog }

// Tracker exposes the call tracker for read-side consumers.
func (e *Enforcer) Tracker() *CallTracker { return e.tracker }

// Violations exposes the violation log for read-side consumers.
func (e *Enforcer) Violations() *ViolationLog { return e.violations }

// BeginTask registers governance state for a new task.
func (e *Enforcer) BeginTask(taskID, userID, classification string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tasks[taskID]; ok {
		return
	}
	e.tasks[taskID] = &taskState{
		userID:         userID,
		classification: classification,
		createdAt:      time.Now().UTC(),
		rates:          make(map[rateKey]*rateWindow),
	}
}

// ValidateStagePermissions checks the stage's permission record against the
// named permission set.
func (e *Enforcer) ValidateStagePermissions(stage models.Stage, required []string, taskID string) error {
	if !stage.IsValid() {
		details := map[string]any{"role": string(stage)}
		e.violations.Append(taskID, models.ViolationInvalidStageRole, stage, details)
		return &ViolationError{Kind: models.ViolationInvalidStageRole, Stage: stage, TaskID: taskID, Details: details}
	}
	perms, err := e.catalog.PermissionsFor(stage)
	if err != nil {
		return err
	}
	for _, name := range required {
		if !hasPermission(perms, name) {
			kind := "missing_permission_" + name
			details := map[string]any{"required_permission": name}
			e.violations.Append(taskID, kind, stage, details)
			return &ViolationError{Kind: kind, Stage: stage, TaskID: taskID, Details: details}
		}
	}
	return nil
}

// ValidateCorpusAccess checks the stage may query the corpus and enforces the
// per-minute rate limit.
func (e *Enforcer) ValidateCorpusAccess(stage models.Stage, corpus models.Corpus, taskID string) error {
	perms, err := e.catalog.PermissionsFor(stage)
	if err != nil {
		return err
	}
	if !perms.HasCorpus(corpus) {
		details := map[string]any{
			"corpus":             string(corpus),
			"authorized_corpora": corpusNames(perms.CorpusAccess),
		}
		e.violations.Append(taskID, models.ViolationUnauthorizedCorpusAccess, stage, details)
		return &CorpusAccessError{
			ViolationError: ViolationError{Kind: models.ViolationUnauthorizedCorpusAccess, Stage: stage, TaskID: taskID, Details: details},
			Corpus:         corpus,
			Allowed:        perms.CorpusAccess,
		}
	}

	e.mu.Lock()
	state := e.taskLocked(taskID)
	key := rateKey{taskID: taskID, stage: stage, corpus: corpus}
	win, ok := state.rates[key]
	now := time.Now()
	if !ok || now.Sub(win.start) >= time.Minute {
		win = &rateWindow{start: now}
		state.rates[key] = win
	}
	win.count++
	count := win.count
	if count <= e.rateLimit {
		state.corpusAccessCount++
	}
	e.mu.Unlock()

	if count > e.rateLimit {
		details := map[string]any{
			"corpus":        string(corpus),
			"limit_per_min": e.rateLimit,
			"attempted":     count,
		}
		e.violations.Append(taskID, models.ViolationCorpusRateLimitExceeded, stage, details)
		return &ViolationError{Kind: models.ViolationCorpusRateLimitExceeded, Stage: stage, TaskID: taskID, Details: details}
	}
	return nil
}

// ValidateRetrievalAccess checks the stage may query the retrieval endpoint.
// Only the Critic passes.
func (e *Enforcer) ValidateRetrievalAccess(stage models.Stage, taskID string) error {
	perms, err := e.catalog.PermissionsFor(stage)
	if err != nil {
		return err
	}
	if !perms.RetrievalAccess {
		details := map[string]any{"authorized_stages": []string{string(models.StageCritic)}}
		e.violations.Append(taskID, models.ViolationUnauthorizedRetrievalAccess, stage, details)
		return &RetrievalAccessError{
			ViolationError:   ViolationError{Kind: models.ViolationUnauthorizedRetrievalAccess, Stage: stage, TaskID: taskID, Details: details},
			AuthorizedStages: []models.Stage{models.StageCritic},
		}
	}
	e.mu.Lock()
	e.taskLocked(taskID).retrievalQueryCount++
	e.mu.Unlock()
	return nil
}

// ValidateAPICall atomically checks the stage's call budget and consumes a
// slot on success. The grant and the increment are one step; callers must
// not pre-check separately.
func (e *Enforcer) ValidateAPICall(stage models.Stage, taskID string) error {
	perms, err := e.catalog.PermissionsFor(stage)
	if err != nil {
		return err
	}
	attempted, ok := e.tracker.CheckAndIncrement(taskID, stage, perms.MaxAPICalls)
	if !ok {
		details := map[string]any{
			"max_calls":      perms.MaxAPICalls,
			"attempted_call": attempted,
		}
		e.violations.Append(taskID, models.ViolationAPICallLimitExceeded, stage, details)
		return &APICallLimitError{
			ViolationError: ViolationError{Kind: models.ViolationAPICallLimitExceeded, Stage: stage, TaskID: taskID, Details: details},
			Max:            perms.MaxAPICalls,
			Attempted:      attempted,
		}
	}
	return nil
}

// ValidateTransformerRequirement resolves how a stage should transform text
// given transformer availability. It raises TransformerRequiredError when a
// required transformer is unavailable and no fallback is authorized.
func (e *Enforcer) ValidateTransformerRequirement(stage models.Stage, taskID string, transformerAvailable bool) (TransformerDecision, error) {
	perms, err := e.catalog.PermissionsFor(stage)
	if err != nil {
		return TransformerDecision{}, err
	}

	canFallback := e.canFallbackToAPI(stage, perms, taskID)
	useTransformer := transformerAvailable && perms.TransformerAccess

	decision := TransformerDecision{
		UseTransformer:   useTransformer,
		CanFallbackToAPI: canFallback,
	}
	switch {
	case useTransformer && perms.TransformerRequired:
		decision.Method = MethodTransformerOnly
	case useTransformer:
		decision.Method = MethodTransformerPrimary
	default:
		decision.Method = MethodAPIFallback
	}

	if perms.TransformerRequired && !transformerAvailable && !canFallback {
		details := map[string]any{"transformer_available": transformerAvailable}
		e.violations.Append(taskID, models.ViolationTransformerRequiredUnavailable, stage, details)
		return decision, &TransformerRequiredError{
			Stage:  stage,
			TaskID: taskID,
			Reason: "transformer required but unavailable and no API fallback permission",
		}
	}
	return decision, nil
}

// canFallbackToAPI applies the per-role fallback policy. The Revisor may
// fall back within its budget; the Summarizer needs emergency authorization.
func (e *Enforcer) canFallbackToAPI(stage models.Stage, perms StagePermissions, taskID string) bool {
	switch stage {
	case models.StageRevisor:
		return perms.MaxAPICalls > 0
	case models.StageSummarizer:
		authorized := e.authorizer.AuthorizeEmergency(taskID)
		e.logger.Info("emergency fallback authorization checked",
			"task_id", taskID, "stage", string(stage), "authorized", authorized)
		return authorized
	default:
		return e.tracker.Count(taskID, stage) < perms.MaxAPICalls
	}
}

// Finalize produces the governance summary for the task. It is idempotent:
// the second call returns the cached summary unchanged. Task state is
// retained for look-ups until the age sweeper evicts it.
func (e *Enforcer) Finalize(taskID string) Summary {
	e.mu.Lock()
	if cached, ok := e.summaries[taskID]; ok {
		e.mu.Unlock()
		return *cached
	}
	state := e.taskLocked(taskID)
	userID := state.userID
	classification := state.classification
	createdAt := state.createdAt
	corpusQueries := state.corpusAccessCount
	retrievalQueries := state.retrievalQueryCount
	e.mu.Unlock()

	calls := e.tracker.Snapshot(taskID)
	total := 0
	for _, n := range calls {
		total += n
	}
	violations := e.violations.For(taskID)

	summary := Summary{
		TaskID:           taskID,
		UserID:           userID,
		Classification:   classification,
		CallsByStage:     calls,
		TotalAPICalls:    total,
		CorpusQueries:    corpusQueries,
		RetrievalQueries: retrievalQueries,
		ViolationCount:   len(violations),
		Violations:       violations,
		CreatedAt:        createdAt,
		FinalizedAt:      time.Now().UTC(),
	}

	e.mu.Lock()
	if cached, ok := e.summaries[taskID]; ok {
		e.mu.Unlock()
		return *cached
	}
	e.summaries[taskID] = &summary
	e.mu.Unlock()
	return summary
}

// SummaryFor returns the finalized summary for a task, if present.
func (e *Enforcer) SummaryFor(taskID string) (Summary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.summaries[taskID]; ok {
		return *s, true
	}
	return Summary{}, false
}

// StartSweeper evicts task state and summaries older than the retention age.
// It returns a stop function.
func (e *Enforcer) StartSweeper(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				e.sweep(time.Now().UTC())
			}
		}
	}()
	return func() { close(done) }
}

func (e *Enforcer) sweep(now time.Time) {
	cutoff := now.Add(-e.retention)
	e.mu.Lock()
	var expired []string
	for taskID, state := range e.tasks {
		if state.createdAt.Before(cutoff) {
			expired = append(expired, taskID)
		}
	}
	for _, taskID := range expired {
		delete(e.tasks, taskID)
		delete(e.summaries, taskID)
	}
	e.mu.Unlock()

	for _, taskID := range expired {
		e.tracker.Reset(taskID)
		e.violations.Reset(taskID)
	}
}

// taskLocked returns (creating if absent) the task state. Callers hold e.mu.
func (e *Enforcer) taskLocked(taskID string) *taskState {
	state, ok := e.tasks[taskID]
	if !ok {
		state = &taskState{createdAt: time.Now().UTC(), rates: make(map[rateKey]*rateWindow)}
		e.tasks[taskID] = state
	}
	return state
}

func corpusNames(corpora []models.Corpus) []string {
	out := make([]string, len(corpora))
	for i, c := range corpora {
		out[i] = string(c)
	}
	return out
}
