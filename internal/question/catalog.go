package question

// Subject catalogs per test track. CAMPUR is the union of both tracks.
var (
	subjectsPOLRI = []string{
		"bahasa_inggris",
		"numerik",
		"pengetahuan_umum",
		"wawasan_kebangsaan",
	}
	subjectsCPNS = []string{
		"tiu",
		"wawasan_kebangsaan",
		"tkp",
	}
)

// SubjectsFor returns the valid subject tags for a test type, nil for an
// unknown type.
func SubjectsFor(t TestType) []string {
	switch t {
	case TestPOLRI:
		return subjectsPOLRI
	case TestCPNS:
		return subjectsCPNS
	case TestCampur:
		out := make([]string, 0, len(subjectsPOLRI)+len(subjectsCPNS))
		out = append(out, subjectsPOLRI...)
		for _, s := range subjectsCPNS {
			if !contains(out, s) {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ValidSubjects reports whether subjects is a non-empty subset of the
// catalog for t.
func ValidSubjects(t TestType, subjects []string) bool {
	if len(subjects) == 0 {
		return false
	}
	catalog := SubjectsFor(t)
	if catalog == nil {
		return false
	}
	for _, s := range subjects {
		if !contains(catalog, s) {
			return false
		}
	}
	return true
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
