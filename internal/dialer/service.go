// Package dialer orchestrates outbound patient calls across the three
// delivery strategies: a hosted conversational agent, synthesized speech
// relayed through the telephony provider, and a physical SIP-relay call.
package dialer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/otakuogeek/clinic-callcenter/internal/calls"
	"github.com/otakuogeek/clinic-callcenter/internal/observability/metrics"
	"github.com/otakuogeek/clinic-callcenter/internal/phone"
	"github.com/otakuogeek/clinic-callcenter/internal/provider"
	"github.com/otakuogeek/clinic-callcenter/internal/provider/convai"
	"github.com/otakuogeek/clinic-callcenter/internal/provider/relay"
	"github.com/otakuogeek/clinic-callcenter/pkg/logging"
)

// Strategy labels used in logs and metrics.
const (
	StrategyConversational = "conversational"
	StrategyRelay          = "relay"
	StrategyPhysical       = "physical"
)

// ConversationClient starts and ends provider-hosted phone conversations.
type ConversationClient interface {
	StartPhoneCall(ctx context.Context, req convai.StartCallRequest) (*convai.Conversation, error)
	EndConversation(ctx context.Context, conversationID string) error
}

// Synthesizer produces an audio buffer from text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// RelayClient places a bridged call through the signed telephony API.
type RelayClient interface {
	RequestCallback(ctx context.Context, fromExtension, toNumber string) (*relay.CallbackResult, error)
}

// AttemptStore persists call attempts and errors. Store failures never abort
// a call; the dialer reports them separately.
type AttemptStore interface {
	UpsertAttempt(ctx context.Context, a calls.Attempt) error
	AppendError(ctx context.Context, phoneNumber string, patientID *string, details map[string]any) error
	MarkEnded(ctx context.Context, conversationID string) error
	GetAttempt(ctx context.Context, conversationID string) (*calls.Attempt, error)
}

// Config wires the dialer's collaborators and fixed settings. Everything is
// injected at construction so tests can run differently-credentialed
// instances side by side.
type Config struct {
	ConvAI  ConversationClient
	TTS     Synthesizer
	Relay   RelayClient
	Store   AttemptStore
	Metrics *metrics.CallMetrics
	Logger  *logging.Logger

	DefaultAgentID     string
	DefaultVoiceID     string
	DefaultCountryCode string
	// RelaySIPExtension is the pre-verified originating extension for relay
	// and physical calls. Empty disables those placements.
	RelaySIPExtension string
}

// Service decides which strategy to attempt, invokes fallback, and records
// the outcome. It holds no mutable state between invocations.
type Service struct {
	convai  ConversationClient
	tts     Synthesizer
	relay   RelayClient
	store   AttemptStore
	metrics *metrics.CallMetrics
	logger  *logging.Logger

	defaultAgentID string
	defaultVoiceID string
	countryCode    string
	sipExtension   string
}

// New creates a dialer service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		convai:         cfg.ConvAI,
		tts:            cfg.TTS,
		relay:          cfg.Relay,
		store:          cfg.Store,
		metrics:        cfg.Metrics,
		logger:         logger.Component("dialer"),
		defaultAgentID: cfg.DefaultAgentID,
		defaultVoiceID: cfg.DefaultVoiceID,
		countryCode:    cfg.DefaultCountryCode,
		sipExtension:   cfg.RelaySIPExtension,
	}
}

// Options is the ephemeral input for one orchestration invocation.
type Options struct {
	PhoneNumber   string
	PatientID     string
	AppointmentID string
	// AgentID overrides the configured default conversational agent.
	AgentID string
	// Message is the text for the TTS strategies.
	Message string
	// VoiceID overrides the configured default synthesis voice.
	VoiceID string
	// DirectCall skips the conversational strategy entirely.
	DirectCall bool
	// Variables seed the conversational agent (patient name, date, doctor...).
	Variables map[string]string
	// Metadata is merged into the provider payload and the stored attempt.
	Metadata map[string]any
}

// Result is the dialer's outcome. Callers branch on Status, not just
// Success: "call_initiated" means the phone is ringing, "audio_generated"
// means the audio artifact exists but no call was placed (a soft success),
// "real_call_initiated" means the hosted agent is calling.
type Result struct {
	Success bool
	Status  string
	// ConversationID is the attempt record key.
	ConversationID string
	// ProviderConversationID is set when the hosted agent handled the call.
	ProviderConversationID string
	// CallID is the relay provider's call identifier, when a call was placed.
	CallID string
	Err    error
	// PersistenceErr reports a store write failure. It never flips Success:
	// the actual call outcome takes priority over audit persistence.
	PersistenceErr error
}

// PlaceCall runs the strategy state machine for one phone number.
func (s *Service) PlaceCall(ctx context.Context, opts Options) Result {
	normalized := phone.Normalize(opts.PhoneNumber, s.countryCode)
	if normalized == "" {
		return Result{Status: calls.StatusFailed, Err: provider.Validation("dialer: phone number required")}
	}

	attempt := calls.Attempt{
		ConversationID: uuid.NewString(),
		AgentID:        calls.AgentDirect,
		PhoneNumber:    normalized,
		PatientID:      optional(opts.PatientID),
		AppointmentID:  optional(opts.AppointmentID),
		Status:         calls.StatusInitiated,
		Metadata:       mergeMetadata(opts.Metadata, map[string]any{"message": opts.Message}),
	}

	if opts.DirectCall {
		res := Result{ConversationID: attempt.ConversationID}
		res.PersistenceErr = s.persistAttempt(ctx, attempt)
		return s.placeRelayCall(ctx, attempt, opts, res)
	}

	agentID := strings.TrimSpace(opts.AgentID)
	if agentID == "" {
		agentID = s.defaultAgentID
	}
	if agentID == "" {
		return Result{
			ConversationID: attempt.ConversationID,
			Status:         calls.StatusFailed,
			Err:            provider.Validation("dialer: no conversational agent configured"),
		}
	}

	attempt.AgentID = agentID
	res := Result{ConversationID: attempt.ConversationID}
	res.PersistenceErr = s.persistAttempt(ctx, attempt)

	started := time.Now()
	conv, err := s.convai.StartPhoneCall(ctx, convai.StartCallRequest{
		AgentID:          agentID,
		PhoneNumber:      normalized,
		DynamicVariables: opts.Variables,
		Metadata:         opts.Metadata,
	})
	s.metrics.ObserveProviderLatency("convai", time.Since(started).Seconds())

	switch {
	case err == nil:
		attempt.Status = calls.StatusRealCallInitiated
		attempt.Metadata["provider_conversation_id"] = conv.ConversationID
		s.recordPersistence(&res, s.persistAttempt(ctx, attempt))
		s.metrics.ObserveAttempt(StrategyConversational, attempt.Status)
		s.logger.Info("conversational call initiated",
			"conversation_id", attempt.ConversationID,
			"provider_conversation_id", conv.ConversationID,
			"phone", normalized,
		)
		res.Success = true
		res.Status = attempt.Status
		res.ProviderConversationID = conv.ConversationID
		return res

	case provider.IsPlanLimitation(err):
		// The only fallback edge: plan limitation sends the attempt down
		// the synthesize-and-relay path.
		s.metrics.ObserveFallback()
		s.logger.Warn("conversational strategy unavailable on plan, falling back to relay",
			"conversation_id", attempt.ConversationID,
			"error", err,
		)
		return s.placeRelayCall(ctx, attempt, opts, res)

	default:
		return s.fail(ctx, attempt, StrategyConversational, err, res)
	}
}

// placeRelayCall runs the synthesize-then-relay strategy. It returns a soft
// success (audio_generated) when the audio exists but the relay declined the
// call, and a hard failure only when synthesis itself fails.
func (s *Service) placeRelayCall(ctx context.Context, attempt calls.Attempt, opts Options, res Result) Result {
	if strings.TrimSpace(opts.Message) == "" {
		return s.fail(ctx, attempt, StrategyRelay, provider.Validation("dialer: message text required for relay strategy"), res)
	}

	voiceID := strings.TrimSpace(opts.VoiceID)
	if voiceID == "" {
		voiceID = s.defaultVoiceID
	}

	started := time.Now()
	audio, err := s.tts.Synthesize(ctx, opts.Message, voiceID)
	s.metrics.ObserveProviderLatency("tts", time.Since(started).Seconds())
	if err != nil {
		return s.fail(ctx, attempt, StrategyRelay, err, res)
	}

	// The audio artifact is durably recorded before the relay attempt, so
	// its existence survives whatever happens next.
	attempt.AgentID = calls.AgentDirect
	attempt.Status = calls.StatusDirectCallGenerated
	attempt.Metadata["audio_size"] = len(audio)
	s.recordPersistence(&res, s.persistAttempt(ctx, attempt))

	relayNumber := phone.NormalizeForRelay(attempt.PhoneNumber, s.countryCode)
	callID := ""
	accepted := false
	if s.sipExtension == "" {
		s.logger.Warn("relay extension not configured, keeping audio-only result",
			"conversation_id", attempt.ConversationID)
	} else {
		started = time.Now()
		callback, err := s.relay.RequestCallback(ctx, s.sipExtension, relayNumber)
		s.metrics.ObserveProviderLatency("relay", time.Since(started).Seconds())
		if err != nil {
			s.logger.Warn("relay call failed after audio generation",
				"conversation_id", attempt.ConversationID,
				"error", err,
			)
			s.appendError(ctx, &res, attempt, StrategyRelay, err)
		} else {
			accepted = callback.Accepted
			callID = callback.CallID
			attempt.Metadata["relay_time"] = callback.ProviderTime
		}
	}

	if accepted && callID != "" {
		attempt.Status = calls.StatusCallInitiated
		attempt.Metadata["call_id"] = callID
	} else {
		attempt.Status = calls.StatusAudioGenerated
	}
	s.recordPersistence(&res, s.persistAttempt(ctx, attempt))
	s.metrics.ObserveAttempt(StrategyRelay, attempt.Status)
	s.logger.Info("relay strategy finished",
		"conversation_id", attempt.ConversationID,
		"status", attempt.Status,
		"call_id", callID,
	)

	res.Success = true
	res.Status = attempt.Status
	res.CallID = callID
	return res
}

// PlacePhysicalCall places a call bridged from the pre-verified SIP
// extension. It is a separate entry point, never part of the automatic
// fallback chain, and has no further fallback of its own.
func (s *Service) PlacePhysicalCall(ctx context.Context, opts Options) Result {
	if strings.TrimSpace(opts.Message) == "" {
		return Result{Status: calls.StatusFailed, Err: provider.Validation("dialer: message text required for physical call")}
	}
	if s.sipExtension == "" {
		return Result{Status: calls.StatusFailed, Err: provider.Validation("dialer: relay extension not configured")}
	}
	normalized := phone.Normalize(opts.PhoneNumber, s.countryCode)
	if normalized == "" {
		return Result{Status: calls.StatusFailed, Err: provider.Validation("dialer: phone number required")}
	}

	attempt := calls.Attempt{
		ConversationID: uuid.NewString(),
		AgentID:        calls.AgentDirect,
		PhoneNumber:    normalized,
		PatientID:      optional(opts.PatientID),
		AppointmentID:  optional(opts.AppointmentID),
		Status:         calls.StatusInitiated,
		Metadata:       mergeMetadata(opts.Metadata, map[string]any{"message": opts.Message, "entry": StrategyPhysical}),
	}
	res := Result{ConversationID: attempt.ConversationID}

	voiceID := strings.TrimSpace(opts.VoiceID)
	if voiceID == "" {
		voiceID = s.defaultVoiceID
	}
	audio, err := s.tts.Synthesize(ctx, opts.Message, voiceID)
	if err != nil {
		return s.fail(ctx, attempt, StrategyPhysical, err, res)
	}
	attempt.Status = calls.StatusDirectCallGenerated
	attempt.Metadata["audio_size"] = len(audio)
	res.PersistenceErr = s.persistAttempt(ctx, attempt)

	callback, err := s.relay.RequestCallback(ctx, s.sipExtension, phone.NormalizeForRelay(normalized, s.countryCode))
	if err != nil {
		return s.fail(ctx, attempt, StrategyPhysical, err, res)
	}
	if !callback.Accepted {
		err := &provider.Error{
			Kind:    provider.KindProvider,
			Message: "dialer: relay declined physical call",
			Payload: callback.Raw,
		}
		return s.fail(ctx, attempt, StrategyPhysical, err, res)
	}

	attempt.Status = calls.StatusCallInitiated
	attempt.Metadata["call_id"] = callback.CallID
	attempt.Metadata["relay_time"] = callback.ProviderTime
	s.recordPersistence(&res, s.persistAttempt(ctx, attempt))
	s.metrics.ObserveAttempt(StrategyPhysical, attempt.Status)
	s.logger.Info("physical call initiated",
		"conversation_id", attempt.ConversationID,
		"call_id", callback.CallID,
	)

	res.Success = true
	res.Status = attempt.Status
	res.CallID = callback.CallID
	return res
}

// EndCall terminates a live conversational call and marks the attempt ended.
func (s *Service) EndCall(ctx context.Context, conversationID string) error {
	attempt, err := s.store.GetAttempt(ctx, conversationID)
	if err != nil {
		return err
	}
	if attempt == nil {
		return provider.Validation("dialer: unknown conversation id")
	}
	if providerID, ok := attempt.Metadata["provider_conversation_id"].(string); ok && providerID != "" {
		if err := s.convai.EndConversation(ctx, providerID); err != nil {
			return err
		}
	}
	return s.store.MarkEnded(ctx, conversationID)
}

// fail records the terminal failure and the audit error row, then reports
// the typed error to the caller.
func (s *Service) fail(ctx context.Context, attempt calls.Attempt, strategy string, err error, res Result) Result {
	attempt.Status = calls.StatusFailed
	s.recordPersistence(&res, s.persistAttempt(ctx, attempt))
	s.appendError(ctx, &res, attempt, strategy, err)
	s.metrics.ObserveAttempt(strategy, attempt.Status)
	s.logger.Error("call attempt failed",
		"conversation_id", attempt.ConversationID,
		"strategy", strategy,
		"error", err,
	)
	res.Success = false
	res.Status = attempt.Status
	res.Err = err
	return res
}

func (s *Service) persistAttempt(ctx context.Context, attempt calls.Attempt) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.UpsertAttempt(ctx, attempt); err != nil {
		s.logger.Error("persist attempt failed",
			"conversation_id", attempt.ConversationID,
			"error", err,
		)
		return err
	}
	return nil
}

func (s *Service) appendError(ctx context.Context, res *Result, attempt calls.Attempt, strategy string, cause error) {
	if s.store == nil {
		return
	}
	details := map[string]any{
		"strategy":        strategy,
		"conversation_id": attempt.ConversationID,
		"error":           cause.Error(),
	}
	if pe, ok := asProviderError(cause); ok && len(pe.Payload) > 0 {
		details["provider_payload"] = string(pe.Payload)
	}
	if err := s.store.AppendError(ctx, attempt.PhoneNumber, attempt.PatientID, details); err != nil {
		s.logger.Error("persist call error failed",
			"conversation_id", attempt.ConversationID,
			"error", err,
		)
		s.recordPersistence(res, err)
	}
}

func (s *Service) recordPersistence(res *Result, err error) {
	if err != nil && res.PersistenceErr == nil {
		res.PersistenceErr = err
	}
}

func asProviderError(err error) (*provider.Error, bool) {
	var pe *provider.Error
	ok := err != nil && errors.As(err, &pe)
	return pe, ok
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func mergeMetadata(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
