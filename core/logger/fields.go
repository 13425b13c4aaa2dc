package logger

import (
	"context"
	"fmt"
)

// fields is a flattened log record.
type fields map[string]any

func (f fields) str(key string) (string, bool) {
	v, ok := f[key]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	}
	return fmt.Sprint(v), true
}

func (f fields) setDefault(key string, v any) {
	if _, ok := f[key]; !ok {
		f[key] = v
	}
}

// fromContext copies update metadata unless the record already carries it.
func (f fields) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	if rid := RIDFrom(ctx); rid != "" {
		f.setDefault("rid", rid)
	}
	if uid := UserIDFrom(ctx); uid != 0 {
		f.setDefault("user_id", uid)
	}
	if upd := UpdateIDFrom(ctx); upd != 0 {
		f.setDefault("update_id", upd)
	}
	if cid := ChatIDFrom(ctx); cid != 0 {
		f.setDefault("chat_id", cid)
	}
	if h := HandlerFrom(ctx); h != "" {
		f.setDefault("handler", h)
	}
}

func (f fields) normalizeEnums() {
	if lvl, ok := f.str("level"); ok {
		f["level"] = normalizeLevel(lvl)
	}
	if s, ok := f.str("status"); ok && s != "" {
		norm, _ := normalizeEnum(s, statusValues)
		f["status"] = norm
	}
	if o, ok := f.str("outcome"); ok && o != "" {
		if norm, valid := normalizeEnum(o, outcomeValues); valid {
			f["outcome"] = norm
		} else {
			delete(f, "outcome")
		}
	}
}

// prune drops empty strings and nil values.
func (f fields) prune() {
	for k, v := range f {
		switch val := v.(type) {
		case nil:
			delete(f, k)
		case string:
			if val == "" {
				delete(f, k)
			}
		case fmt.Stringer:
			if val.String() == "" {
				delete(f, k)
			}
		}
	}
}
