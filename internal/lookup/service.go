package lookup

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/vehiclevault-lookup/pkg/dvla"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/dvsa"
	pkgerrors "github.com/angelmondragon/vehiclevault-lookup/pkg/errors"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/logger"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/metrics"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/vrm"
)

const defaultUpstreamTimeout = 5 * time.Second

// Enquirer fetches the DVLA vehicle record for a canonical VRM.
type Enquirer interface {
	Enquire(ctx context.Context, vrm string) (*dvla.Record, error)
}

// HistoryClient fetches the authoritative MOT expiry for a canonical VRM.
type HistoryClient interface {
	ExpiryDate(ctx context.Context, vrm string) (dvsa.Expiry, error)
}

type Service interface {
	Lookup(ctx context.Context, rawVRM string) (*Result, error)
}

// ServiceParams wires the lookup service. Enquiry may be nil only when
// EnquiryEnabled is false.
type ServiceParams struct {
	Enquiry         Enquirer
	History         HistoryClient
	EnquiryEnabled  bool
	UpstreamTimeout time.Duration
	Resolvers       []Resolver
	Logger          *logger.Logger
	Metrics         *metrics.LookupMetrics
}

type service struct {
	enquiry        Enquirer
	history        HistoryClient
	enquiryEnabled bool
	timeout        time.Duration
	resolvers      []Resolver
	logg           *logger.Logger
	metrics        *metrics.LookupMetrics
}

func NewService(params ServiceParams) Service {
	timeout := params.UpstreamTimeout
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	resolvers := params.Resolvers
	if len(resolvers) == 0 {
		resolvers = DefaultResolvers(DefaultFirstMOTMonths)
	}
	return &service{
		enquiry:        params.Enquiry,
		history:        params.History,
		enquiryEnabled: params.EnquiryEnabled,
		timeout:        timeout,
		resolvers:      resolvers,
		logg:           params.Logger,
		metrics:        params.Metrics,
	}
}

// Lookup normalizes the VRM, queries both providers concurrently and resolves
// the best available MOT expiry. Only an enquiry failure fails the lookup; MOT
// history problems are reported in MotHistoryError.
func (s *service) Lookup(ctx context.Context, rawVRM string) (*Result, error) {
	canonical := vrm.Normalize(rawVRM)
	if canonical == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "VRM required")
	}
	if s.enquiryEnabled && s.enquiry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "vehicle enquiry client unavailable")
	}
	if s.logg != nil {
		ctx = s.logg.WithVRM(ctx, canonical)
	}

	var (
		record     *dvla.Record
		expiry     dvsa.Expiry
		historyErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.enquiryEnabled {
		g.Go(func() error {
			rec, err := s.enquire(gctx, canonical)
			if err != nil {
				return err
			}
			record = rec
			return nil
		})
	}
	g.Go(func() error {
		expiry, historyErr = s.motHistory(gctx, canonical)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.warn(ctx, "lookup.enquiry.failed", err)
		return nil, err
	}

	advisory := expiry.Advisory
	if historyErr != nil {
		advisory = advisoryMessage(historyErr)
		s.warn(ctx, "lookup.mot_history.failed", historyErr)
	}

	resolution := Resolve(s.resolvers, Evidence{HistoryExpiry: expiry.Date, Record: record})
	s.metrics.IncResolution(string(resolution.Source))

	result := &Result{
		RegistrationNumber: canonical,
		MotExpiryDate:      resolution.Date,
		MotExpiryEstimated: resolution.Estimated,
		MotExpirySource:    resolution.Source,
		MotHistoryError:    advisory,
	}
	if record != nil {
		result.Fields = record.Fields
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "mot_expiry_source", resolution.Source), "lookup.resolved")
	}
	return result, nil
}

func (s *service) enquire(ctx context.Context, canonical string) (*dvla.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	record, err := s.enquiry.Enquire(ctx, canonical)
	s.metrics.ObserveUpstream(metrics.ProviderDVLA, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "DVLA returned no vehicle")
	}
	return record, nil
}

func (s *service) motHistory(ctx context.Context, canonical string) (dvsa.Expiry, error) {
	if s.history == nil {
		return dvsa.Expiry{}, pkgerrors.New(pkgerrors.CodeConfiguration, "MOT history client unavailable")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	expiry, err := s.history.ExpiryDate(ctx, canonical)
	s.metrics.ObserveUpstream(metrics.ProviderDVSA, err, time.Since(start))
	return expiry, err
}

func (s *service) warn(ctx context.Context, event string, err error) {
	if s.logg == nil {
		return
	}
	dump := pkgerrors.Dump(err)
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error_code": dump.Code,
		"error":      dump.TopMessage,
	}), event)
}

// advisoryMessage renders an MOT history failure for callers. Transport
// failures are suffixed with their cause.
func advisoryMessage(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err.Error()
	}
	msg := typed.Message()
	if typed.Code() == pkgerrors.CodeDependency {
		if cause := typed.Unwrap(); cause != nil {
			msg += ": " + cause.Error()
		}
	}
	return msg
}
