package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ChoiceSelection は選択肢グループ内の1つの選択。
type ChoiceSelection struct {
	GroupID  int64 `json:"group_id"`
	OptionID int64 `json:"option_id"`
}

// VariantSelection はカート・注文明細の商品指定。
// VariantIDは0なら未指定。Choicesは0個以上（1グループ1つまで）。
type VariantSelection struct {
	VariantID int64             `json:"variant_id,omitempty"`
	Choices   []ChoiceSelection `json:"choices,omitempty"`
}

// Normalize はグループID順に並べたコピーを返す。
func (s VariantSelection) Normalize() VariantSelection {
	out := VariantSelection{VariantID: s.VariantID}
	if len(s.Choices) == 0 {
		return out
	}
	out.Choices = append([]ChoiceSelection(nil), s.Choices...)
	sort.Slice(out.Choices, func(i, j int) bool {
		if out.Choices[i].GroupID == out.Choices[j].GroupID {
			return out.Choices[i].OptionID < out.Choices[j].OptionID
		}
		return out.Choices[i].GroupID < out.Choices[j].GroupID
	})
	return out
}

func (s VariantSelection) IsEmpty() bool {
	return s.VariantID == 0 && len(s.Choices) == 0
}

// Key は明細の一意キー。選択の順番に依存しない。
// 例: "v12|g3:o7,g4:o9"、指定なしは ""。
func (s VariantSelection) Key() string {
	n := s.Normalize()
	if n.IsEmpty() {
		return ""
	}
	var b strings.Builder
	if n.VariantID != 0 {
		b.WriteString("v")
		b.WriteString(strconv.FormatInt(n.VariantID, 10))
	}
	if len(n.Choices) > 0 {
		b.WriteString("|")
		for i, c := range n.Choices {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "g%d:o%d", c.GroupID, c.OptionID)
		}
	}
	return b.String()
}

// Value はJSONで保存する（gorm用）。
func (s VariantSelection) Value() (driver.Value, error) {
	b, err := json.Marshal(s.Normalize())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *VariantSelection) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = VariantSelection{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("variant selection: unsupported type")
	}
	if len(raw) == 0 {
		*s = VariantSelection{}
		return nil
	}
	return json.Unmarshal(raw, s)
}
