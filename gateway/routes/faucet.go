package routes

import "net/http"

func (a *api) faucet(w http.ResponseWriter, r *http.Request) {
	if err := a.screens.Faucet.Refresh(r.Context()); err != nil {
		a.logger.Debug("balance refresh failed", "error", err)
	}
	a.respond(w, r, http.StatusOK, "", nil, a.screens.Faucet.Render())
}

func (a *api) requestFaucet(w http.ResponseWriter, r *http.Request) {
	res, err := a.screens.Faucet.Request(r.Context())
	a.respond(w, r, http.StatusOK, res.Digest, err, a.screens.Faucet.Render())
}
