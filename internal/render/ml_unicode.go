package render

import (
	"bytes"

	"govarnam/internal/result"
	"govarnam/internal/token"
)

// Malayalam needs help the generic rules can't give: an r/R that is
// not word-initial and does not follow a virama becomes the chillu
// form (what comes after it is not looked at), and the nj/ng clusters
// take their contextual shape when they are not word-initial.

const mlChilluRR = "ര്" + ZWJ

func mlUnicodeForward(ctx *Context, cur *token.Token, out *bytes.Buffer) error {
	if cur.Pattern == "r" || cur.Pattern == "R" {
		if ctx.Previous != nil && ctx.Virama != nil && !endsWith(out, ctx.Virama.Value1) {
			out.WriteString(mlChilluRR)
			return nil
		}
	}

	if (cur.Tag == "nj" || cur.Tag == "ng") && ctx.Previous != nil {
		out.WriteString(cur.Value2)
		return nil
	}

	return result.ErrPartialRendering
}

func init() {
	Register("ml-unicode", Renderer{Forward: mlUnicodeForward})
}
