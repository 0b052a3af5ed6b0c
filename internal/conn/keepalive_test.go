package conn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
)

func mkReq(method message.RequestMethod, connToken string) message.HttpRequest {
	req := message.NewRequest(method, "/", message.HTTP11)
	if connToken != "" {
		req.Headers = headers.SetConnection(req.Headers, []string{connToken})
	}
	return req
}

func TestShouldKeepAliveDisabledGlobally(t *testing.T) {
	params := KeepAliveParams{Enabled: false, Timeout: time.Second, Max: 10}
	req := mkReq(message.GET, "keep-alive")
	resp := message.NewResponse(message.StatusOK)

	assert.False(t, ShouldKeepAlive(params, 0, req, resp))
}

func TestShouldKeepAliveRequiresRequestToken(t *testing.T) {
	params := KeepAliveParams{Enabled: true, Timeout: time.Second, Max: 10}
	req := mkReq(message.GET, "close")
	resp := message.NewResponse(message.StatusOK)

	assert.False(t, ShouldKeepAlive(params, 0, req, resp))
}

func TestShouldKeepAliveRespectsMax(t *testing.T) {
	params := KeepAliveParams{Enabled: true, Timeout: time.Second, Max: 2}
	req := mkReq(message.GET, "keep-alive")
	resp := message.NewResponse(message.StatusOK)

	assert.True(t, ShouldKeepAlive(params, 1, req, resp))
	assert.False(t, ShouldKeepAlive(params, 2, req, resp))
}

func TestShouldKeepAlive3xxOnlySafeForGetHead(t *testing.T) {
	params := KeepAliveParams{Enabled: true, Timeout: time.Second, Max: 10}
	resp := message.NewResponse(message.ResponseStatus{Code: 302, Reason: "Found"})

	assert.True(t, ShouldKeepAlive(params, 0, mkReq(message.GET, "keep-alive"), resp))
	assert.False(t, ShouldKeepAlive(params, 0, mkReq(message.POST, "keep-alive"), resp))
}

func TestApplyConnectionManagementSetsKeepAliveHeader(t *testing.T) {
	params := KeepAliveParams{Enabled: true, Timeout: 30 * time.Second, Max: 100}
	resp := message.NewResponse(message.StatusOK)

	out := ApplyConnectionManagement(resp, true, params, 1)

	assert.True(t, headers.ConnectionHasToken(out.Headers, "keep-alive"))
	v, ok := out.Headers.Get("Keep-Alive")
	assert.True(t, ok)
	assert.Equal(t, "timeout=30, max=100", v)
}

// TestApplyConnectionManagementMaxAdvertisesFullBudgetOnFirstResponse is
// spec.md §8 scenario 3: keepAlive={timeout:30, max:2}'s first response
// (requestCount==1) must advertise "timeout=30, max=2", not max=1.
func TestApplyConnectionManagementMaxAdvertisesFullBudgetOnFirstResponse(t *testing.T) {
	params := KeepAliveParams{Enabled: true, Timeout: 30 * time.Second, Max: 2}
	resp := message.NewResponse(message.StatusOK)

	out := ApplyConnectionManagement(resp, true, params, 1)

	v, ok := out.Headers.Get("Keep-Alive")
	assert.True(t, ok)
	assert.Equal(t, "timeout=30, max=2", v)
}

func TestApplyConnectionManagementSetsClose(t *testing.T) {
	resp := message.NewResponse(message.StatusOK)
	out := ApplyConnectionManagement(resp, false, KeepAliveParams{}, 0)

	assert.True(t, headers.ConnectionHasToken(out.Headers, "close"))
}

func TestIsUpgradeDetectsConnectionUpgradeToken(t *testing.T) {
	resp := message.NewResponse(message.StatusSwitchingProtocols)
	resp.Headers = headers.SetConnection(resp.Headers, []string{"Upgrade"})

	assert.True(t, IsUpgrade(resp))
	assert.False(t, IsUpgrade(message.NewResponse(message.StatusOK)))
}
