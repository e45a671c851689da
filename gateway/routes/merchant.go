package routes

import (
	"net/http"
	"strconv"
)

func (a *api) merchant(w http.ResponseWriter, r *http.Request) {
	if err := a.screens.Issue.Refresh(r.Context()); err != nil {
		a.logger.Debug("merchant refresh failed", "error", err)
	}
	a.respond(w, r, http.StatusOK, "", nil, a.screens.Issue.Render())
}

// registerMerchant submits the registration. With ?wait=true the response
// is held until the confirmation loop settles.
func (a *api) registerMerchant(w http.ResponseWriter, r *http.Request) {
	receipt, err := a.screens.Issue.RegisterMerchant(r.Context())
	if err == nil {
		if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
			_, _ = a.screens.Issue.WaitRegistration(r.Context())
		}
	}
	a.respond(w, r, http.StatusAccepted, receipt.Digest, err, a.screens.Issue.Render())
}

func (a *api) checkMerchant(w http.ResponseWriter, r *http.Request) {
	err := a.screens.Issue.CheckAgain(r.Context())
	a.respond(w, r, http.StatusAccepted, "", err, a.screens.Issue.Render())
}

func (a *api) continueMerchant(w http.ResponseWriter, r *http.Request) {
	err := a.screens.Issue.ContinueAnyway()
	a.respond(w, r, http.StatusOK, "", err, a.screens.Issue.Render())
}
