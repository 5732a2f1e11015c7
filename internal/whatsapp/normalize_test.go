package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		wantKind ReplyKind
		want     string
	}{
		{
			name:     "text",
			raw:      `{"from":"549","id":"m1","type":"text","text":{"body":"Hola"}}`,
			wantOK:   true,
			wantKind: ReplyText,
			want:     "Hola",
		},
		{
			name:     "text kept verbatim",
			raw:      `{"from":"549","id":"m1","type":"text","text":{"body":"  Ana  María "}}`,
			wantOK:   true,
			wantKind: ReplyText,
			want:     "  Ana  María ",
		},
		{
			name:     "button reply",
			raw:      `{"from":"549","id":"m2","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"OPT_1","title":"Sí"}}}`,
			wantOK:   true,
			wantKind: ReplyButton,
			want:     "OPT_1",
		},
		{
			name:     "list reply",
			raw:      `{"from":"549","id":"m3","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"DOC_DNI","title":"DNI"}}}`,
			wantOK:   true,
			wantKind: ReplyList,
			want:     "DOC_DNI",
		},
		{
			name:     "legacy button without payload",
			raw:      `{"from":"549","id":"m4","type":"button","button":{"payload":null,"text":"Confirmar"}}`,
			wantOK:   true,
			wantKind: ReplyLegacyButton,
			want:     "Confirmar",
		},
		{
			name:     "legacy button with payload",
			raw:      `{"from":"549","id":"m5","type":"button","button":{"payload":"SI","text":"Confirmar"}}`,
			wantOK:   true,
			wantKind: ReplyLegacyButton,
			want:     "SI",
		},
		{name: "image", raw: `{"from":"549","id":"m6","type":"image","image":{"id":"media-1"}}`},
		{name: "empty text", raw: `{"from":"549","id":"m7","type":"text","text":{"body":""}}`},
		{name: "missing text", raw: `{"from":"549","id":"m8","type":"text"}`},
		{name: "unknown interactive", raw: `{"from":"549","id":"m9","type":"interactive","interactive":{"type":"nfm_reply"}}`},
		{name: "button reply without id", raw: `{"from":"549","id":"m10","type":"interactive","interactive":{"type":"button_reply","button_reply":{"title":"Sí"}}}`},
		{name: "no sender", raw: `{"id":"m11","type":"text","text":{"body":"Hola"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &msg))

			r, ok := Normalize(msg)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantKind, r.Kind)
			assert.Equal(t, tt.want, r.Token)
			assert.Equal(t, "549", r.From)
			assert.Equal(t, msg.ID, r.MessageID)
		})
	}
}
