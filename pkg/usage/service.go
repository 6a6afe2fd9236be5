package usage

import (
	"context"
	"errors"
	"time"

	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/middleware"
)

// ErrNoCompany means the caller has company-scoped access but no company
var ErrNoCompany = errors.New("usage: caller has no company")

// Report is a scoped usage aggregate
type Report struct {
	Scope         string    `json:"scope"`
	Since         time.Time `json:"since"`
	TotalRequests int64     `json:"total_requests"`
	Buckets       []Bucket  `json:"buckets"`
}

// Service serves usage reports scoped by the caller's privileges: Site Admins
// read the global aggregate, company Admins only their own company's.
type Service struct {
	store     *Store
	companies middleware.CompanyLookup
}

// NewService creates a usage service
func NewService(store *Store, companies middleware.CompanyLookup) *Service {
	return &Service{store: store, companies: companies}
}

// Report builds the widest usage report the principal may read. The returned
// decision is denied when the principal has no usage scope at all.
func (s *Service) Report(ctx context.Context, p *auth.Principal, since time.Time) (*Report, auth.Decision, error) {
	scope, decision := auth.CanAccessUsageScope(p)
	if !decision.Allowed {
		return nil, decision, nil
	}

	var (
		buckets []Bucket
		err     error
		name    string
	)
	switch scope {
	case auth.UsageScopeGlobal:
		name = "global"
		buckets, err = s.store.GlobalBuckets(ctx, since)
	case auth.UsageScopeCompany:
		name = "company"
		companyID, lookupErr := s.companies.CompanyIDForSubject(ctx, p.SubjectID)
		if lookupErr != nil {
			return nil, decision, lookupErr
		}
		if companyID == 0 {
			return nil, decision, ErrNoCompany
		}
		buckets, err = s.store.CompanyBuckets(ctx, companyID, since)
	}
	if err != nil {
		return nil, decision, err
	}

	report := &Report{Scope: name, Since: since, Buckets: buckets}
	for _, b := range buckets {
		report.TotalRequests += b.Requests
	}
	return report, decision, nil
}
