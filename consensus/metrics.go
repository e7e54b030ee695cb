package consensus

import "github.com/alphabill-org/chainauthority/internal/metrics"

var (
	roundsAdvancedCounter    = metrics.GetOrRegisterCounter("consensus/rounds/advanced")
	roundsFallbackCounter    = metrics.GetOrRegisterCounter("consensus/rounds/fallback")
	proposalsAcceptedCounter = metrics.GetOrRegisterCounter("consensus/proposals/accepted")
	proposalsRejectedCounter = metrics.GetOrRegisterCounter("consensus/proposals/rejected")
)
