package users

import (
	"strings"

	"github.com/tokenworks/auth-service/internal/models"
	"github.com/tokenworks/auth-service/pkg/logger"
)

// sensitiveAttrs are stripped from every projection regardless of the
// configured whitelist.
var sensitiveAttrs = []string{"password", "salt", "hashDate"}

// Project returns the user reduced to the whitelisted attribute paths.
// Dotted paths (profile.firstName) select fields of the nested profile.
// Attributes absent from the record are skipped with a warning, matching
// how tolerant the login response has historically been to partial records.
func Project(u *models.User, whitelist []string) map[string]interface{} {
	out := map[string]interface{}{}

	for _, attr := range whitelist {
		if sub, ok := strings.CutPrefix(attr, "profile."); ok {
			v, ok := u.Profile[sub]
			if !ok {
				logger.Warnf("unmatched whitelisted attribute %s", attr)
				continue
			}
			profile, _ := out["profile"].(map[string]interface{})
			if profile == nil {
				profile = map[string]interface{}{}
				out["profile"] = profile
			}
			profile[sub] = v
			continue
		}

		v, ok := attrValue(u, attr)
		if !ok {
			logger.Warnf("unmatched whitelisted attribute %s", attr)
			continue
		}
		out[attr] = v
	}

	// safety net: credential material never leaves this service
	for _, attr := range sensitiveAttrs {
		delete(out, attr)
		if profile, ok := out["profile"].(map[string]interface{}); ok {
			delete(profile, attr)
		}
	}

	return out
}

func attrValue(u *models.User, attr string) (interface{}, bool) {
	switch attr {
	case "id":
		return u.ID, u.ID != ""
	case "firstName":
		return u.FirstName, u.FirstName != ""
	case "lastName":
		return u.LastName, u.LastName != ""
	case "middleName":
		return u.MiddleName, u.MiddleName != ""
	case "email":
		return u.Email, u.Email != ""
	case "roles":
		return u.Roles, u.Roles != nil
	case "scopes":
		return u.Scopes, u.Scopes != nil
	case "profile":
		return u.Profile, u.Profile != nil
	default:
		return nil, false
	}
}
