package config

// mergeBackendSources merges a built-in list and a user-declared list of
// backend sources. A user entry with the same Name overrides the
// built-in entry in place; new names are appended, preserving the
// built-in list's declared order followed by any additions (spec §3.1:
// "enabled instances are kept in declared order per capability").
func mergeBackendSources(builtin, user []BackendSourceConfig) []BackendSourceConfig {
	byName := make(map[string]int, len(builtin))
	result := make([]BackendSourceConfig, len(builtin))
	copy(result, builtin)
	for i, b := range result {
		byName[b.Name] = i
	}

	for _, u := range user {
		if i, ok := byName[u.Name]; ok {
			result[i] = u
			continue
		}
		byName[u.Name] = len(result)
		result = append(result, u)
	}
	return result
}

// mergeMasking merges a built-in masking default with a user override.
// A non-nil user config wins outright (masking groups/patterns don't
// compose sensibly field-by-field — a user who sets pattern_groups wants
// exactly those groups, not groups-plus-defaults).
func mergeMasking(builtin, user *MaskingConfig) *MaskingConfig {
	if user != nil {
		return user
	}
	return builtin
}
