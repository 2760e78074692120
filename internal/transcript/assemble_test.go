package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleJoinsChineseWithoutSpaces(t *testing.T) {
	t.Parallel()

	got := Assemble([]string{"今天天气不错。", "我们出去走走吧！"})
	require.Equal(t, "今天天气不错。我们出去走走吧！", got)
}

func TestAssembleSpacesLatinSentences(t *testing.T) {
	t.Parallel()

	got := Assemble([]string{" hello", "world.", "\nfrom  the", "gateway"})
	require.Equal(t, "hello world. from the gateway", got)
}

func TestAssembleMixedScripts(t *testing.T) {
	t.Parallel()

	require.Equal(t, "打开 Wi-Fi 设置。OK then.", Assemble([]string{"打开 Wi-Fi 设置。", "OK then."}))
	require.Equal(t, "version 2好的", Assemble([]string{"version 2", "好的"}))
	require.Equal(t, "ready，go", Assemble([]string{"ready，", "go"}))
}

func TestAssembleEmptyInput(t *testing.T) {
	t.Parallel()

	require.Empty(t, Assemble(nil))
	require.Empty(t, Assemble([]string{"  ", "\n\t"}))
}

func TestAssembleSkipsWhitespaceOnlySegments(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hello there", Assemble([]string{"hello", "  ", "there"}))
}

func TestAssembleIdempotentForSingleSegment(t *testing.T) {
	t.Parallel()

	first := Assemble([]string{"hello  world.", "你好。"})
	require.Equal(t, first, Assemble([]string{first}))
}
