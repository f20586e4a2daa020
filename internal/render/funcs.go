package render

import (
	"html/template"

	"github.com/hitoshi/portfolio/internal/model"
)

var funcMap = template.FuncMap{
	"formatDate": formatDate,
}

// formatDate はCMSの日付を表示用の書式に変換する。解釈できない値はそのまま返す。
func formatDate(s string) string {
	t, ok := model.ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("Jan 2, 2006")
}
