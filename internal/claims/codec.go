package claims

import "time"

// Claim keys as stored in the provider's custom claims bag.
const (
	keyEmail        = "email"
	keyDisplayName  = "displayName"
	keyRoles        = "roles"
	keySystemUserID = "systemUserId"
	keyIsDeleted    = "isDeleted"
	keyCreatedAt    = "createdAt"
	keyUpdatedAt    = "updatedAt"
	keyDeletedAt    = "deletedAt"
	keyCreatedBy    = "createdBy"
	keyUpdatedBy    = "updatedBy"
	keyDeletedBy    = "deletedBy"
)

// Decode converts a raw claims bag into a RoleProfile. It is total: malformed
// or missing values degrade to zero values instead of failing, so consumers
// can decode unconditionally before deciding whether to write. The provider
// does not store the identity ID inside the bag, so IdentityID is left empty
// for the caller to fill in.
func Decode(raw map[string]interface{}) RoleProfile {
	if raw == nil {
		return RoleProfile{Roles: []string{}}
	}

	return RoleProfile{
		Email:        decodeString(raw[keyEmail]),
		DisplayName:  decodeString(raw[keyDisplayName]),
		Roles:        decodeRoles(raw[keyRoles]),
		SystemUserID: decodeString(raw[keySystemUserID]),
		IsDeleted:    decodeBool(raw[keyIsDeleted]),
		CreatedAt:    decodeTime(raw[keyCreatedAt]),
		UpdatedAt:    decodeTime(raw[keyUpdatedAt]),
		DeletedAt:    decodeTime(raw[keyDeletedAt]),
		CreatedBy:    decodeString(raw[keyCreatedBy]),
		UpdatedBy:    decodeString(raw[keyUpdatedBy]),
		DeletedBy:    decodeString(raw[keyDeletedBy]),
	}
}

// Encode converts a RoleProfile into the raw claims bag written to the
// provider. Roles are always encoded as an array regardless of how they were
// stored before, and updatedAt is stamped on every write. Zero-value fields
// are omitted so the bag stays small (Firebase caps custom claims at 1000
// bytes serialized).
func Encode(p RoleProfile) map[string]interface{} {
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	raw := map[string]interface{}{
		keyRoles:     normalizeRoles(p.Roles),
		keyIsDeleted: p.IsDeleted,
		keyUpdatedAt: updatedAt.UTC().Format(time.RFC3339),
	}

	putString(raw, keyEmail, p.Email)
	putString(raw, keyDisplayName, p.DisplayName)
	putString(raw, keySystemUserID, p.SystemUserID)
	putString(raw, keyCreatedBy, p.CreatedBy)
	putString(raw, keyUpdatedBy, p.UpdatedBy)
	putString(raw, keyDeletedBy, p.DeletedBy)
	putTime(raw, keyCreatedAt, p.CreatedAt)
	putTime(raw, keyDeletedAt, p.DeletedAt)

	return raw
}

// decodeRoles normalizes the three encodings the roles claim has been seen
// with in the wild: an array of strings, a single bare string, or absent.
// Anything else yields an empty set.
func decodeRoles(v interface{}) []string {
	switch roles := v.(type) {
	case []string:
		return normalizeRoles(roles)
	case []interface{}:
		out := make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return normalizeRoles(out)
	case string:
		if roles == "" {
			return []string{}
		}
		return []string{roles}
	default:
		return []string{}
	}
}

func decodeString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func decodeBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func decodeTime(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func putString(raw map[string]interface{}, key, value string) {
	if value != "" {
		raw[key] = value
	}
}

func putTime(raw map[string]interface{}, key string, value time.Time) {
	if !value.IsZero() {
		raw[key] = value.UTC().Format(time.RFC3339)
	}
}
