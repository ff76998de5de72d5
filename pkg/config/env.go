package config

const (
	EnvPrefix = "CRISPYSPIN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "CRISPYSPIN_APP_ENV"
	EnvPort   = "CRISPYSPIN_APP_PORT"

	EnvDBDSN  = "CRISPYSPIN_DB_DSN"
	EnvDBHost = "CRISPYSPIN_DB_HOST"
	EnvDBUser = "CRISPYSPIN_DB_USER"
	EnvDBName = "CRISPYSPIN_DB_NAME"

	EnvRedisURL = "CRISPYSPIN_REDIS_URL"

	EnvJWTSecret  = "CRISPYSPIN_JWT_SECRET"
	EnvJWTIssuer  = "CRISPYSPIN_JWT_ISSUER"
	EnvJWTExpMins = "CRISPYSPIN_JWT_EXPIRATION_MINUTES"

	EnvChainRPCURL = "CRISPYSPIN_CHAIN_RPC_URL"

	EnvSignerPrivateKey    = "CRISPYSPIN_SIGNER_PRIVATE_KEY"
	EnvSignerMintContract  = "CRISPYSPIN_SIGNER_MINT_CONTRACT"
	EnvSignerClaimVault    = "CRISPYSPIN_SIGNER_CLAIM_VAULT"
	EnvSignerPartnerToken  = "CRISPYSPIN_SIGNER_PARTNER_TOKEN"
	EnvSignerPartnerAmount = "CRISPYSPIN_SIGNER_PARTNER_AMOUNT_WEI"
	EnvSignerClaimTTL      = "CRISPYSPIN_SIGNER_CLAIM_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
