// Package orchestrator drives the per-request ingest pipeline: validate
// the inbound message, normalize it into a fact, persist the fact and
// its derived indices, evaluate counters, and respond — recording
// per-phase timings and classifying every failure into the shared
// ingesterr taxonomy along the way.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"factored/internal/catalog"
	"factored/internal/counter"
	"factored/internal/fact"
	"factored/internal/fieldmap"
	"factored/internal/ingesterr"
	"factored/internal/store"
)

// Stage identifies where in the state machine a request currently is.
type Stage int

const (
	Received Stage = iota
	Validated
	FactPersisted
	IndicesPersisted
	CountersEvaluated
	Responded
)

func (s Stage) String() string {
	switch s {
	case Received:
		return "received"
	case Validated:
		return "validated"
	case FactPersisted:
		return "fact_persisted"
	case IndicesPersisted:
		return "indices_persisted"
	case CountersEvaluated:
		return "counters_evaluated"
	case Responded:
		return "responded"
	default:
		return "unknown"
	}
}

// Timings records elapsed time for the four phases tracked per request.
type Timings struct {
	Total             time.Duration
	FactWrite         time.Duration
	IndexWrite        time.Duration
	CounterEvaluation time.Duration
}

// Result is the successful outcome of processing one inbound message.
type Result struct {
	Fact     *fact.Fact
	Warnings []fact.Warning
	Counters map[string][]map[string]any
	Timings  Timings
	Stage    Stage
}

// Orchestrator wires the Fact Normalizer, Counter Producer, and Store
// Gateway together. A zero Orchestrator is not valid; build one with
// New.
type Orchestrator struct {
	catalogs *catalog.Catalogs
	mapper   *fieldmap.Mapper
	counters *counter.Producer
	gw       store.Gateway
	gate     *store.BackpressureGate
	rateGate *RateGate
	clock    fact.Clock
}

// New builds an Orchestrator. gate may be nil to disable pool-saturation
// backpressure rejection; rateGate may be nil to disable rate limiting.
func New(catalogs *catalog.Catalogs, mapper *fieldmap.Mapper, producer *counter.Producer, gw store.Gateway, gate *store.BackpressureGate, rateGate *RateGate) *Orchestrator {
	return &Orchestrator{
		catalogs: catalogs,
		mapper:   mapper,
		counters: producer,
		gw:       gw,
		gate:     gate,
		rateGate: rateGate,
	}
}

// SetClock overrides the fact timestamp clock. Intended for tests; the
// default (nil) is fact.RealClock.
func (o *Orchestrator) SetClock(clock fact.Clock) {
	o.clock = clock
}

// ingestCtx threads the current stage and phase checkpoints through one
// request's processing, scoped to this call and never shared across
// goroutines — there is no process-wide mutable request state.
type ingestCtx struct {
	stage   Stage
	started time.Time
	timings Timings
}

// Process runs one inbound message through the full pipeline:
// validate → normalize → persist fact → persist indices → evaluate
// counters → respond.
func (o *Orchestrator) Process(ctx context.Context, msg fact.InboundMessage) (*Result, error) {
	ic := &ingestCtx{stage: Received, started: time.Now()}

	if o.gate != nil && !o.gate.Allow() {
		return nil, fmt.Errorf("%w: store connection pool saturated", ingesterr.ErrOverloaded)
	}
	if o.rateGate != nil && !o.rateGate.Allow() {
		return nil, fmt.Errorf("%w: request rate exceeded", ingesterr.ErrOverloaded)
	}

	if err := o.validate(msg); err != nil {
		return nil, err
	}
	ic.stage = Validated

	if o.mapper != nil && o.mapper.Enabled() {
		msg.D = o.mapper.RewritePayloadKeys(msg.D, o.mapper.GetLongName)
	}

	f, err := fact.Normalize(msg, o.clock)
	if err != nil {
		return nil, err
	}

	factStart := time.Now()
	if _, err := o.gw.InsertFact(ctx, f); err != nil {
		return nil, fmt.Errorf("%w: %v", ingesterr.ErrTransientStore, err)
	}
	ic.timings.FactWrite = time.Since(factStart)
	ic.stage = FactPersisted

	entries, warnings := fact.DeriveIndexEntries(f, o.catalogs)
	indexStart := time.Now()
	if len(entries) > 0 {
		if _, err := o.gw.InsertIndexBatch(ctx, entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ingesterr.ErrTransientStore, err)
		}
	}
	ic.timings.IndexWrite = time.Since(indexStart)
	ic.stage = IndicesPersisted

	counterStart := time.Now()
	results, err := o.evaluateCounters(ctx, f)
	if err != nil {
		return nil, err
	}
	ic.timings.CounterEvaluation = time.Since(counterStart)
	ic.stage = CountersEvaluated

	ic.timings.Total = time.Since(ic.started)
	ic.stage = Responded

	return &Result{
		Fact:     f,
		Warnings: warnings,
		Counters: results,
		Timings:  ic.timings,
		Stage:    ic.stage,
	}, nil
}

func (o *Orchestrator) validate(msg fact.InboundMessage) error {
	if msg.D == nil {
		return fmt.Errorf("%w: payload is required", ingesterr.ErrBadRequest)
	}
	if !o.knownMessageType(msg.T) {
		return fmt.Errorf("%w: message type %d", ingesterr.ErrUnknownMessageType, msg.T)
	}
	return nil
}

// knownMessageType reports whether msg.T appears in any Field Catalog
// entry's message_types list.
func (o *Orchestrator) knownMessageType(t int) bool {
	for _, f := range o.catalogs.Fields {
		for _, mt := range f.MessageTypes {
			if mt == t {
				return true
			}
		}
	}
	return false
}

func (o *Orchestrator) evaluateCounters(ctx context.Context, f *fact.Fact) (map[string][]map[string]any, error) {
	if o.counters == nil {
		return nil, nil
	}
	doc := counter.BuildDoc(f)
	matched, _ := o.counters.Select(f.T, doc)
	if len(matched) == 0 {
		return nil, nil
	}
	spec := o.counters.BuildFacet(matched)
	results, err := o.gw.RunCounterFacet(ctx, fmt.Sprint(f.T), spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ingesterr.ErrTransientStore, err)
	}
	return results, nil
}
