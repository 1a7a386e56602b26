package features

import "strings"

// Canonicalize strips the trailing :tag or @digest suffix from a feature
// reference, returning the bare id used as a dependency-graph vertex and
// cache key. It reuses ParseFeatureRef's registry-port-vs-tag
// disambiguation (a colon before the last "/" is a port, not a tag).
func Canonicalize(id string) string {
	ref, err := ParseFeatureRef(id)
	if err != nil {
		return id
	}
	switch ref.Type {
	case RefTypeOCI:
		resource := ref.Resource
		if at := strings.IndexByte(resource, '@'); at != -1 {
			resource = resource[:at]
		}
		if ref.Registry == "" {
			return ref.Repository + "/" + resource
		}
		return ref.Registry + "/" + ref.Repository + "/" + resource
	case RefTypeLocal:
		return "local:" + ref.Path
	case RefTypeHTTP:
		return ref.URL
	default:
		return id
	}
}

// IsRemote reports whether id refers to a feature resolvable against a
// registry (as opposed to a local filesystem path or a direct tarball
// URL). Operations that require a registry lookup (listTags, publish,
// manifest/layer fetch) must reject non-remote ids.
func IsRemote(id string) bool {
	if isLocalPath(id) {
		return false
	}
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return false
	}
	ref, err := ParseFeatureRef(id)
	if err != nil {
		return false
	}
	return ref.Type == RefTypeOCI
}

// isLocalPath recognizes the local-path forms the remote-only filter
// must reject: "./", "../", a leading "/", and a Windows drive letter
// like "C:\" or "C:/".
func isLocalPath(id string) bool {
	if strings.HasPrefix(id, "./") || strings.HasPrefix(id, "../") || strings.HasPrefix(id, "/") {
		return true
	}
	if len(id) >= 3 && isASCIILetter(id[0]) && id[1] == ':' && (id[2] == '\\' || id[2] == '/') {
		return true
	}
	return false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
