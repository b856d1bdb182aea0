package recurring

import (
	"strings"
)

const titlePrefix = "Prepare "

// ComposeTitle "Prepare {base} ({role}) for {period}"，base 中已有的周期后缀先去掉
func ComposeTitle(tpl *Template, roleName, periodLabel string) string {
	base := strings.TrimSpace(tpl.Title)
	if base == "" {
		base = strings.TrimSpace(tpl.Code)
	}
	if periodLabel != "" {
		for _, suffix := range []string{" for " + periodLabel, " (" + periodLabel + ")", " " + periodLabel} {
			if strings.HasSuffix(base, suffix) {
				base = strings.TrimSpace(strings.TrimSuffix(base, suffix))
				break
			}
		}
	}
	if len(base) >= len(titlePrefix) && strings.EqualFold(base[:len(titlePrefix)], titlePrefix) {
		base = strings.TrimSpace(base[len(titlePrefix):])
	}

	var b strings.Builder
	b.WriteString(titlePrefix)
	b.WriteString(base)
	if roleName = strings.TrimSpace(roleName); roleName != "" {
		b.WriteString(" (" + roleName + ")")
	}
	if periodLabel != "" {
		b.WriteString(" for " + periodLabel)
	}
	return b.String()
}
