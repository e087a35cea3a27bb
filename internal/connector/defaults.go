package connector

import (
	"os"
	"strings"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// EnvDefaults derives bootstrap instances from process environment variables,
// one per connector family that has a URL configured. Explicit instance
// configuration takes precedence over these; they exist so a fresh deployment
// can talk to its systems before any operator has saved configuration.
//
// Per family: <FAMILY>_URL enables the default, <FAMILY>_ENABLED=false leaves
// it registered but inactive, and the credential variables select the family's
// conventional auth type.
func EnvDefaults() []models.SystemInstance {
	var instances []models.SystemInstance

	if inst, ok := envInstance("jira", "JIRA", jiraEnvAuth); ok {
		instances = append(instances, inst)
	}
	if inst, ok := envInstance("wazuh", "WAZUH", bearerEnvAuth("WAZUH_TOKEN")); ok {
		instances = append(instances, inst)
	}
	if inst, ok := envInstance("fortigate", "FORTIGATE", apiKeyEnvAuth("FORTIGATE_API_KEY")); ok {
		inst.SSLConfig.AllowSelfSigned = envBool("FORTIGATE_ALLOW_SELF_SIGNED", true)
		instances = append(instances, inst)
	}
	if inst, ok := envInstance("elastic", "ELASTIC", basicEnvAuth("ELASTIC_USERNAME", "ELASTIC_PASSWORD")); ok {
		instances = append(instances, inst)
	}
	if inst, ok := envInstance("kibana", "KIBANA", basicEnvAuth("KIBANA_USERNAME", "KIBANA_PASSWORD")); ok {
		instances = append(instances, inst)
	}
	if inst, ok := envInstance("proxmox", "PROXMOX", apiKeyEnvAuth("PROXMOX_API_TOKEN")); ok {
		inst.SSLConfig.AllowSelfSigned = envBool("PROXMOX_ALLOW_SELF_SIGNED", true)
		instances = append(instances, inst)
	}

	return instances
}

func envInstance(family, prefix string, auth func() (models.AuthType, models.AuthConfig)) (models.SystemInstance, bool) {
	baseURL := os.Getenv(prefix + "_URL")
	if baseURL == "" {
		return models.SystemInstance{}, false
	}

	authType, authConfig := auth()
	return models.SystemInstance{
		InstanceID:  family + "-default",
		SystemName:  family,
		DisplayName: "Default " + family + " instance",
		BaseURL:     baseURL,
		IsActive:    envBool(prefix+"_ENABLED", true),
		AuthType:    authType,
		AuthConfig:  authConfig,
	}, true
}

// jiraEnvAuth prefers a bearer token and falls back to basic credentials.
func jiraEnvAuth() (models.AuthType, models.AuthConfig) {
	if token := os.Getenv("JIRA_TOKEN"); token != "" {
		return models.AuthBearer, models.AuthConfig{Token: token}
	}
	return models.AuthBasic, models.AuthConfig{
		Username: os.Getenv("JIRA_USERNAME"),
		Password: os.Getenv("JIRA_PASSWORD"),
	}
}

func bearerEnvAuth(tokenVar string) func() (models.AuthType, models.AuthConfig) {
	return func() (models.AuthType, models.AuthConfig) {
		return models.AuthBearer, models.AuthConfig{Token: os.Getenv(tokenVar)}
	}
}

func basicEnvAuth(userVar, passVar string) func() (models.AuthType, models.AuthConfig) {
	return func() (models.AuthType, models.AuthConfig) {
		return models.AuthBasic, models.AuthConfig{
			Username: os.Getenv(userVar),
			Password: os.Getenv(passVar),
		}
	}
}

func apiKeyEnvAuth(keyVar string) func() (models.AuthType, models.AuthConfig) {
	return func() (models.AuthType, models.AuthConfig) {
		return models.AuthAPIKey, models.AuthConfig{Key: os.Getenv(keyVar)}
	}
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}
