package resolver

import (
	"fmt"
	"regexp"
	"strings"
)

// Extraction helpers shared by table entries.
var (
	quotedRe  = regexp.MustCompile(`['"]([^'"]*)['"]`)
	urlRe     = regexp.MustCompile(`https?://\S+`)
	pathRe    = regexp.MustCompile(`[\w./~-]*[\w-]\.[\w-]+|[\w./~-]+/[\w./~-]+`)
	patternRe = regexp.MustCompile(`\S*[*?\[]\S*`)
)

func firstQuoted(input string) (string, bool) {
	m := quotedRe.FindStringSubmatch(input)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func allQuoted(input string) []string {
	var out []string
	for _, m := range quotedRe.FindAllStringSubmatch(input, -1) {
		out = append(out, m[1])
	}
	return out
}

func firstURL(input string) (string, bool) {
	u := urlRe.FindString(input)
	if u == "" {
		return "", false
	}
	return strings.TrimRight(u, ".,;"), true
}

// DefaultTable returns the built-in trigger table in priority order.
// Specific triggers come first: the commit rule must precede the generic
// git rule, and download must precede plain URL fetching.
func DefaultTable() []Rule {
	return []Rule{
		{
			Name:    "create-file",
			Trigger: regexp.MustCompile(`(?i)\b(?:create|make|write)\b.*\bfile\b`),
			Op:      "create_file",
			Extract: extractCreateFile,
		},
		{
			Name:    "read-file",
			Trigger: regexp.MustCompile(`(?i)\b(?:read|show|display|cat)\b.*\b(?:file|contents? of)\b|\bcontents? of\b`),
			Op:      "read_file",
			Extract: extractSinglePath("path", "no file path found"),
		},
		{
			Name:    "find-files",
			Trigger: regexp.MustCompile(`(?i)\b(?:find|search for|locate)\b.*\bfiles?\b`),
			Op:      "find_files",
			Extract: extractFindPattern,
		},
		{
			Name:    "list-dir",
			Trigger: regexp.MustCompile(`(?i)\blist\b.*\b(?:directory|folder|dir)\b|\bfiles in\b|\bls\b`),
			Op:      "list_dir",
			Extract: extractListDir,
		},
		{
			Name:    "git-commit",
			Trigger: regexp.MustCompile(`(?i)\bcommit\b`),
			Op:      "git_commit",
			Extract: extractCommitMessage,
		},
		{
			Name:    "git-push",
			Trigger: regexp.MustCompile(`(?i)\bpush\b`),
			Op:      "git_push",
		},
		{
			Name:    "git-add",
			Trigger: regexp.MustCompile(`(?i)\bstage\b|\badd\b.*\bchanges\b|\bgit add\b`),
			Op:      "git_add",
			Extract: func(input string) (map[string]string, error) {
				params := map[string]string{}
				if q, ok := firstQuoted(input); ok {
					params["path"] = q
				}
				return params, nil
			},
		},
		{
			Name:    "git-status",
			Trigger: regexp.MustCompile(`(?i)\bgit\b|\brepo(?:sitory)? status\b|\bworking tree\b`),
			Op:      "git_status",
		},
		{
			Name:    "download",
			Trigger: regexp.MustCompile(`(?i)\bdownload\b`),
			Op:      "download_file",
			Extract: extractDownload,
		},
		{
			Name:    "http-get",
			Trigger: regexp.MustCompile(`(?i)\b(?:fetch|get|request)\b.*https?://|^https?://`),
			Op:      "http_get",
			Extract: func(input string) (map[string]string, error) {
				u, ok := firstURL(input)
				if !ok {
					return map[string]string{}, fmt.Errorf("no url found")
				}
				return map[string]string{"url": u}, nil
			},
		},
		{
			Name:    "disk-space",
			Trigger: regexp.MustCompile(`(?i)\bdisk (?:space|usage)\b|\bfree space\b|\bhow much space\b`),
			Op:      "disk_space",
		},
		{
			Name:    "list-processes",
			Trigger: regexp.MustCompile(`(?i)\b(?:running )?processes\b|\bprocess list\b`),
			Op:      "list_processes",
		},
		{
			Name:    "list-env",
			Trigger: regexp.MustCompile(`(?i)\benvironment variables?\b|\benv(?:ironment)? vars?\b|\blist\b.*\benv\b`),
			Op:      "list_env",
		},
		{
			Name:    "system-info",
			Trigger: regexp.MustCompile(`(?i)\bsystem info(?:rmation)?\b|\babout (?:this|the) (?:system|machine|host)\b`),
			Op:      "system_info",
		},
		{
			Name:    "self-diagnose",
			Trigger: regexp.MustCompile(`(?i)\bself[- ]?diagnose\b|\bdiagnose\b|\bhealth check\b`),
			Op:      "self_diagnose",
			Extract: func(input string) (map[string]string, error) {
				params := map[string]string{}
				if u, ok := firstURL(input); ok {
					params["remote_memory_url"] = u
				}
				return params, nil
			},
		},
		{
			Name:    "sync-graph",
			Trigger: regexp.MustCompile(`(?i)\bsync\b`),
			Op:      "sync_graph",
		},
		{
			Name:    "store-knowledge",
			Trigger: regexp.MustCompile(`(?i)\bremember\b`),
			Op:      "store_knowledge",
			Extract: extractKnowledge,
		},
		{
			Name:    "retrieve-knowledge",
			Trigger: regexp.MustCompile(`(?i)\brecall\b|\bwhat did i tell you about\b`),
			Op:      "retrieve_knowledge",
			Extract: extractKnowledgeKey,
		},
		{
			Name:    "workspace-overview",
			Trigger: regexp.MustCompile(`(?i)\bworkspace overview\b|\boverview of\b|\bwhat do you know about the workspace\b`),
			Op:      "workspace_overview",
		},
		{
			Name:    "project-context",
			Trigger: regexp.MustCompile(`(?i)\bcontext (?:for|of|about)\b|\btell me about\b|\bwhat do you know about\b`),
			Op:      "project_context",
			Extract: extractProject,
		},
		{
			Name:    "recent-history",
			Trigger: regexp.MustCompile(`(?i)\brecent (?:history|interactions|activity)\b|\bwhat did (?:we|i|you) do\b|\bhistory\b`),
			Op:      "recent_history",
		},
	}
}

func extractListDir(input string) (map[string]string, error) {
	params := map[string]string{}
	if q, ok := firstQuoted(input); ok {
		params["path"] = q
		return params, nil
	}
	if p := pathRe.FindString(input); p != "" {
		params["path"] = p
		return params, nil
	}
	inRe := regexp.MustCompile(`(?i)\b(?:in|of|under)\s+['"]?([\w./-]+)['"]?\s*$`)
	if m := inRe.FindStringSubmatch(input); m != nil {
		params["path"] = m[1]
	}
	return params, nil
}

func extractCreateFile(input string) (map[string]string, error) {
	params := map[string]string{}

	quotes := allQuoted(input)
	nameRe := regexp.MustCompile(`(?i)\b(?:called|named)\s+['"]?([\w./-]+)['"]?`)

	if m := nameRe.FindStringSubmatch(input); m != nil {
		params["path"] = m[1]
	} else if p := pathRe.FindString(input); p != "" {
		params["path"] = p
	}

	contentRe := regexp.MustCompile(`(?i)\bwith (?:content|contents|text)\s+['"]([^'"]*)['"]`)
	if m := contentRe.FindStringSubmatch(input); m != nil {
		params["content"] = m[1]
	} else if len(quotes) > 1 {
		params["content"] = quotes[len(quotes)-1]
	}

	if params["path"] == "" {
		return params, fmt.Errorf("no file name found")
	}
	return params, nil
}

func extractSinglePath(key, missing string) ExtractFunc {
	return func(input string) (map[string]string, error) {
		params := map[string]string{}
		if q, ok := firstQuoted(input); ok {
			params[key] = q
			return params, nil
		}
		if p := pathRe.FindString(input); p != "" {
			params[key] = p
			return params, nil
		}
		return params, fmt.Errorf("%s", missing)
	}
}

func extractFindPattern(input string) (map[string]string, error) {
	params := map[string]string{}
	if q, ok := firstQuoted(input); ok {
		params["pattern"] = q
		return params, nil
	}
	if p := patternRe.FindString(input); p != "" {
		params["pattern"] = p
		return params, nil
	}
	// "find go files" style: turn a bare extension word into a glob.
	extRe := regexp.MustCompile(`(?i)\b(?:all )?(\w+) files?\b`)
	if m := extRe.FindStringSubmatch(input); m != nil && !strings.EqualFold(m[1], "the") {
		params["pattern"] = "*." + strings.ToLower(m[1])
		return params, nil
	}
	return params, fmt.Errorf("no search pattern found")
}

func extractCommitMessage(input string) (map[string]string, error) {
	params := map[string]string{}
	if q, ok := firstQuoted(input); ok {
		params["message"] = q
		return params, nil
	}
	msgRe := regexp.MustCompile(`(?i)\bmessage\s+(.+)$`)
	if m := msgRe.FindStringSubmatch(input); m != nil {
		params["message"] = strings.TrimSpace(m[1])
		return params, nil
	}
	return params, fmt.Errorf("no commit message found")
}

func extractDownload(input string) (map[string]string, error) {
	params := map[string]string{}
	u, ok := firstURL(input)
	if !ok {
		return params, fmt.Errorf("no url found")
	}
	params["url"] = u

	toRe := regexp.MustCompile(`(?i)\b(?:to|into|as)\s+['"]?([\w./-]+)['"]?`)
	if m := toRe.FindStringSubmatch(input); m != nil && !strings.HasPrefix(m[1], "http") {
		params["path"] = m[1]
	} else {
		segs := strings.Split(strings.TrimRight(u, "/"), "/")
		params["path"] = segs[len(segs)-1]
	}
	return params, nil
}

func extractKnowledge(input string) (map[string]string, error) {
	params := map[string]string{}
	if quotes := allQuoted(input); len(quotes) >= 2 {
		params["key"] = quotes[0]
		params["value"] = quotes[1]
		return params, nil
	}
	kvRe := regexp.MustCompile(`(?i)\bremember (?:that )?([\w./-]+) (?:is|as|=)\s+(.+)$`)
	if m := kvRe.FindStringSubmatch(input); m != nil {
		params["key"] = m[1]
		params["value"] = strings.TrimSpace(m[2])
		return params, nil
	}
	return params, fmt.Errorf("no key and value found")
}

func extractKnowledgeKey(input string) (map[string]string, error) {
	params := map[string]string{}
	if q, ok := firstQuoted(input); ok {
		params["key"] = q
		return params, nil
	}
	keyRe := regexp.MustCompile(`(?i)\b(?:recall|about)\s+['"]?([\w./-]+)['"]?\s*$`)
	if m := keyRe.FindStringSubmatch(input); m != nil {
		params["key"] = m[1]
		return params, nil
	}
	return params, fmt.Errorf("no knowledge key found")
}

func extractProject(input string) (map[string]string, error) {
	params := map[string]string{}
	if q, ok := firstQuoted(input); ok {
		params["project"] = q
		return params, nil
	}
	projRe := regexp.MustCompile(`(?i)\b(?:context (?:for|of|about)|tell me about|know about)\s+(?:the )?(?:project )?([\w./-]+)`)
	if m := projRe.FindStringSubmatch(input); m != nil {
		params["project"] = m[1]
		return params, nil
	}
	return params, fmt.Errorf("no project name found")
}
