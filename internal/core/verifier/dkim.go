package verifier

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/core"
)

const (
	dkimMarker = "v=DKIM1"

	msgDKIMMissing = "No DKIM records found for common selectors"
	msgDKIMError   = "Could not check DKIM records"
	errDKIMMissing = "DKIM records missing"
	errDKIMFailed  = "DKIM check failed"
)

// checkDKIM probes selectors in order and stops at the first TXT record
// containing the DKIM marker. A failed lookup for one selector just moves on
// to the next. A fault in the loop itself is recovered by runGuarded and
// reported as the error outcome.
func (v *Verifier) checkDKIM(ctx context.Context, domain string) checkResult {
	for _, selector := range v.selectors() {
		name := selector + "._domainkey." + domain
		records, err := v.Resolver.LookupTXT(ctx, name)
		if err != nil {
			v.debug("DKIM selector lookup failed",
				zap.String("selector", selector),
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		for _, record := range records {
			if strings.Contains(record, dkimMarker) {
				return found(&core.CheckOutcome{
					Status:   core.StatusFound,
					Record:   record,
					Selector: selector,
					Message:  "DKIM record found for selector: " + selector,
				})
			}
		}
	}
	return failed(core.StatusMissing, msgDKIMMissing, errDKIMMissing)
}
