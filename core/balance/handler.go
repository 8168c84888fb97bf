package balance

import (
	"context"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/api/weberr"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		if !claims.IsOwner(ctx, id) {
			return weberr.Forbidden(fmt.Errorf("balance of instructor[%s] requested by another user", id))
		}

		b, err := Fetch(ctx, db, id)
		if err != nil {
			return fmt.Errorf("fetching balance: %w", err)
		}

		return web.Respond(ctx, w, b, http.StatusOK)
	}
}
