package config

import (
	"time"

	"github.com/kevinwang15/litpatch"
)

// ToEditorConfig builds the editor configuration. c must have passed Validate.
func ToEditorConfig(c Config, logger litpatch.Logger) (litpatch.Config, error) {
	mode, err := litpatch.ParseMode(c.Mode)
	if err != nil {
		return litpatch.Config{}, err
	}
	out := litpatch.Config{
		IDField:   c.IDField,
		Anchor:    c.Anchor,
		AllowList: AllowList(c.AllowList),
		Mode:      mode,
		FoldCase:  c.FoldCase,
		Logger:    logger,
	}
	if !c.Stamp.Disabled {
		out.StampField = c.Stamp.Field
		out.StampLayout = c.Stamp.Layout
		out.Now = time.Now
	}
	if st := c.Style; st.Quote != "" || st.Indent != "" || st.Null != "" {
		s := litpatch.Style{Indent: st.Indent, Null: st.Null}
		if st.Quote != "" {
			s.Quote = st.Quote[0]
		}
		out.Style = &s
	}
	return out, nil
}

// AllowList resolves configured names: empty means the default AI tool fields
// and a lone "*" means no restriction.
func AllowList(names []string) litpatch.AllowList {
	switch {
	case len(names) == 0:
		return litpatch.DefaultAllowList()
	case len(names) == 1 && names[0] == "*":
		return nil
	}
	return litpatch.NewAllowList(names...)
}
