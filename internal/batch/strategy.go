package batch

import (
	"context"

	"github.com/sterlixo/chilli-checker/internal/domain"
	"github.com/sterlixo/chilli-checker/internal/verify"
)

// Classifier is the part of the scoring engine a strategy needs.
type Classifier interface {
	ClassifyLine(line string) domain.ClassificationResult
}

// Strategy turns one input line into one result. It is chosen when a batch
// starts and stays fixed for the whole run.
type Strategy interface {
	Name() string
	// Verifies reports whether the strategy calls an external service, which
	// selects the longer inter-record delay.
	Verifies() bool
	Process(ctx context.Context, index int, line string) domain.RecordResult
}

// Strategy names accepted by the API.
const (
	StrategyLocal    = "local"
	StrategyVerified = "verified"
)

// Local classifies records with the scoring engine only.
type Local struct {
	Engine Classifier
}

// Name implements Strategy.
func (Local) Name() string { return StrategyLocal }

// Verifies implements Strategy.
func (Local) Verifies() bool { return false }

// Process implements Strategy.
func (s Local) Process(_ context.Context, index int, line string) domain.RecordResult {
	return fromClassification(index, line, s.Engine.ClassifyLine(line))
}

// Verified classifies locally first and asks the external verifier only for
// records that pass the checksum, format and expiry checks.
type Verified struct {
	Engine   Classifier
	Verifier *verify.Guard
}

// Name implements Strategy.
func (Verified) Name() string { return StrategyVerified }

// Verifies implements Strategy.
func (Verified) Verifies() bool { return true }

// Process implements Strategy.
func (s Verified) Process(ctx context.Context, index int, line string) domain.RecordResult {
	local := s.Engine.ClassifyLine(line)
	if local.Rejected {
		return fromClassification(index, line, local)
	}

	rec, err := domain.ParseRecord(line)
	if err != nil {
		return fromClassification(index, line, local)
	}

	out := s.Verifier.Verify(ctx, rec)
	status := out.Status.ToDomain()
	network := out.Network
	if network == "" {
		network = local.Network
	}
	return domain.RecordResult{
		Index:      index,
		Line:       line,
		Status:     status,
		Code:       status.Code(),
		Network:    network,
		Last4:      out.Last4,
		Message:    out.Message,
		Confidence: local.Confidence,
		Verified:   true,
	}
}

func fromClassification(index int, line string, res domain.ClassificationResult) domain.RecordResult {
	return domain.RecordResult{
		Index:      index,
		Line:       line,
		Status:     res.Status,
		Code:       res.Status.Code(),
		Network:    res.Network,
		Last4:      res.Last4,
		Message:    res.Message,
		Confidence: res.Confidence,
	}
}
