package scm

import (
	"bufio"
	"bytes"
	"strings"
)

// iniFile maps section name to key/value pairs. Keys outside any section
// live under "".
type iniFile map[string]map[string]string

func (f iniFile) get(section, key string) string {
	return f[section][key]
}

// parseHgrc reads a Mercurial config file. Comments start with '#' or ';'
// at the beginning of a line only, so a '#branch' suffix on a path stays
// part of the value. Indented lines continue the previous value, and
// %include/%unset directives are skipped.
func parseHgrc(data []byte) iniFile {
	out := iniFile{}
	section, lastKey := "", ""
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		raw := sc.Text()
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			lastKey = ""
			continue
		case raw[0] == ' ' || raw[0] == '\t':
			if lastKey != "" {
				prev := out[section][lastKey]
				if prev != "" {
					prev += "\n"
				}
				out[section][lastKey] = prev + line
			}
			continue
		case line[0] == '#' || line[0] == ';' || line[0] == '%':
			continue
		case line[0] == '[':
			if end := strings.IndexByte(line, ']'); end > 0 {
				section = strings.TrimSpace(line[1:end])
			}
			lastKey = ""
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			lastKey = ""
			continue
		}
		key = strings.TrimSpace(key)
		if out[section] == nil {
			out[section] = make(map[string]string)
		}
		out[section][key] = strings.TrimSpace(value)
		lastKey = key
	}
	return out
}

// parseBzrConf reads the ConfigObj format of Bazaar's branch.conf: '#'
// comments, optional [sections] and "key = value" lines with optionally
// quoted values.
func parseBzrConf(data []byte) iniFile {
	out := iniFile{}
	section := ""
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			section = strings.Trim(line, "[] ")
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		if out[section] == nil {
			out[section] = make(map[string]string)
		}
		out[section][strings.TrimSpace(key)] = value
	}
	return out
}
