package tool

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alist-org/arkit/pkg/errs"
)

var (
	toolsMu             sync.RWMutex
	Tools               = make(map[string]Tool)
	MultipartExtensions = make(map[string]string)
)

// RegisterTool makes a codec available to engines loaded afterwards. Codecs
// call it from init.
func RegisterTool(tool Tool) {
	toolsMu.Lock()
	defer toolsMu.Unlock()
	for _, name := range tool.Formats() {
		Tools[strings.ToLower(name)] = tool
	}
	if mt, ok := tool.(MultipartTool); ok {
		for _, ext := range mt.VolumePatterns() {
			first := fmt.Sprintf(ext, 1)
			MultipartExtensions[first] = ext
		}
	}
}

// GetTool returns the registered codec of a format.
func GetTool(format string) (Tool, error) {
	toolsMu.RLock()
	defer toolsMu.RUnlock()
	t, ok := Tools[strings.ToLower(format)]
	if !ok {
		return nil, errs.Newf(errs.KindUnsupportedFormat, "engine", "no codec for %s", format)
	}
	return t, nil
}

// GetMultipartPattern returns the base name and volume pattern when name is
// the first volume of a spanned archive. The longest matching suffix wins.
func GetMultipartPattern(name string) (base, pattern string, ok bool) {
	toolsMu.RLock()
	defer toolsMu.RUnlock()
	lower := strings.ToLower(name)
	best := ""
	for first, p := range MultipartExtensions {
		if strings.HasSuffix(lower, first) && len(first) > len(best) {
			best, pattern = first, p
		}
	}
	if best == "" {
		return "", "", false
	}
	return name[:len(name)-len(best)], pattern, true
}

func snapshot() map[string]Tool {
	toolsMu.RLock()
	defer toolsMu.RUnlock()
	ret := make(map[string]Tool, len(Tools))
	for k, v := range Tools {
		ret[k] = v
	}
	return ret
}
