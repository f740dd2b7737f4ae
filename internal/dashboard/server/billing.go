package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/nebulacloud/console/internal/aggregate"
	"github.com/nebulacloud/console/internal/catalog"
	"github.com/nebulacloud/console/internal/dashboard/query"
	"github.com/nebulacloud/console/pkg/money"
)

const creditsPath = "/dashboard/credits"

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request, p page, rest []string) {
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx := r.Context()
		credits := s.creditList(ctx, p)
		vps := s.vpsList(ctx, p)
		dbs := s.databaseList(ctx, p)
		buckets := s.bucketList(ctx, p)
		balance := aggregate.CreditBalance(credits)
		spend := aggregate.MonthlySpend(vps, dbs, buckets)
		months, hasRunway := aggregate.RunwayMonths(balance, spend)

		data := s.baseData(r, p, "Credits & Billing", "credits")
		data["Entries"] = credits
		data["Balance"] = balance
		data["Health"] = aggregate.BalanceHealth(balance)
		data["MonthlySpend"] = spend
		data["RunwayMonths"] = months
		data["HasRunway"] = hasRunway
		data["Shares"] = aggregate.SpendShare(vps, dbs, buckets)
		data["Instances"] = vps
		data["Databases"] = dbs
		data["Catalog"] = s.catalog(ctx, p)
		s.render(w, r, "credits", data)
	case len(rest) == 1 && rest[0] == "purchase":
		if !s.parseForm(w, r) {
			return
		}
		amount, ok := purchaseAmount(r)
		if !ok {
			redirectWithFlash(w, r, creditsPath, "Error: Enter a valid amount")
			return
		}
		guard := query.Guard{Entity: "credit", ID: p.owner(), Op: "purchase", Payload: amount.Dollars()}
		s.mutate(w, r, guard, creditsPath, "Purchased "+amount.String()+" in credits",
			func(ctx context.Context) error {
				_, err := s.api.PurchaseCredits(ctx, p.sess.Token, amount.Dollars())
				return err
			}, s.key(p, query.CollectionCredits))
	default:
		s.notFound(w, r)
	}
}

// purchaseAmount reads a package price, credited with its bonus, or a custom amount.
func purchaseAmount(r *http.Request) (money.Cents, bool) {
	if raw := strings.TrimSpace(r.PostFormValue("package")); raw != "" {
		price, err := money.Parse(raw)
		if err != nil {
			return 0, false
		}
		pkg, ok := catalog.LookupCreditPackage(price)
		if !ok {
			return 0, false
		}
		return pkg.Total(), true
	}
	amount, err := money.Parse(strings.TrimSpace(r.PostFormValue("amount")))
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}
