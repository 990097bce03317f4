package config

const EnvPrefix = "VEHICLEVAULT"

// Variable names shared with the upstream clients' configuration errors and
// the validation messages below.
const (
	EnvDVLAAPIKey = "DVLA_API_KEY"
	EnvDVLAURL    = "DVLA_VES_URL"

	EnvDVSAAPIKey       = "DVSA_API_KEY"
	EnvDVSABaseURL      = "DVSA_BASE_URL"
	EnvDVSATokenURL     = "DVSA_TOKEN_URL"
	EnvDVSAClientID     = "DVSA_CLIENT_ID"
	EnvDVSAClientSecret = "DVSA_CLIENT_SECRET"
	EnvDVSAScope        = "DVSA_SCOPE_URL"
	EnvDVSATokenMargin  = "DVSA_TOKEN_SAFETY_MARGIN"

	EnvLookupUpstreamTimeout = "LOOKUP_UPSTREAM_TIMEOUT"
	EnvLookupFirstMOTMonths  = "LOOKUP_FIRST_MOT_MONTHS"

	EnvRateLimitLookupWindow   = "RATE_LIMIT_LOOKUP_WINDOW"
	EnvRateLimitLookupIPLimit  = "RATE_LIMIT_LOOKUP_IP_LIMIT"
	EnvRateLimitLookupVRMLimit = "RATE_LIMIT_LOOKUP_VRM_LIMIT"
)
