package adapters

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/ppiankov/lawparse/internal/statute"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		source      string
		contentType string
		want        string
	}{
		{"law.docx", "", "word"},
		{"https://flk.npc.gov.cn/detail2.html?id=1", "", "html"},
		{"https://flk.npc.gov.cn/download/law.docx", "", "word"},
		{"page", "text/html; charset=utf-8", "html"},
		{"law.txt", "", "text"},
		{"law.bin", "", "text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.FindAdapter(tt.source, tt.contentType).Name(), "source %q", tt.source)
	}

	a, ok := r.ByType("WORD")
	require.True(t, ok)
	assert.Equal(t, "word", a.Name())
	_, ok = r.ByType("PDF")
	assert.False(t, ok)
}

func TestHTMLAdapter_Extract(t *testing.T) {
	page := `<html><head><title>中华人民共和国测试法</title><script>var x = 1;</script></head><body>
<div class="nav"><p>导航</p></div>
<div class="law-content main">
<p>中华人民共和国测试法</p>
<p>（2021年6月10日通过）</p>
<p>&nbsp;</p>
<p>第一条&nbsp;为了<b>测试</b>，制定本法。</p>
<p>第二条 A &amp; B</p>
</div></body></html>`

	got, err := NewHTMLAdapter(statute.Default()).Extract([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, "中华人民共和国测试法", got.Title)
	assert.Equal(t, "（2021年6月10日通过）", got.Description)
	assert.Equal(t, []string{"第一条 为了测试，制定本法。", "第二条 A & B"}, got.Lines)
}

func TestHTMLAdapter_TitleFromBody(t *testing.T) {
	page := `<html><body>
<p>中华人民共和国测试法</p>
<p>（2021年6月10日通过）</p>
<p>第一条 内容</p>
</body></html>`

	got, err := NewHTMLAdapter(statute.Default()).Extract([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, "中华人民共和国测试法", got.Title)
	assert.Equal(t, "（2021年6月10日通过）", got.Description)
	assert.Equal(t, []string{"第一条 内容"}, got.Lines)
}

func TestHTMLAdapter_NoContent(t *testing.T) {
	page := `<html><head><title>测试法</title></head><body><div class="law-content"><p>测试法</p></div></body></html>`
	_, err := NewHTMLAdapter(statute.Default()).Extract([]byte(page))
	assert.ErrorIs(t, err, ErrNoContent)
}

func docx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func para(text string) string {
	return `<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>` + "\n"
}

func TestWordAdapter_Extract(t *testing.T) {
	body := para("") +
		para("中华人民共和国测试法") +
		para("（2021年6月10日第十三届全国人民代表大会") +
		para("常务委员会第二十九次会议通过）") +
		para("第一章　　总则") +
		para("第一条　为了测试。") +
		`<w:tbl><w:tblPr/><w:tr><w:tc>` + para("名称") + `</w:tc><w:tc>` + para("数值") + `</w:tc></w:tr>` +
		`<w:tr><w:tc>` + para("甲") + para("乙") + `</w:tc><w:tc>` + para("1") + `</w:tc></w:tr></w:tbl>` +
		para("第二条　完。")

	got, err := NewWordAdapter(statute.Default()).Extract(docx(t, body))
	require.NoError(t, err)

	assert.Equal(t, "中华人民共和国测试法", got.Title)
	assert.Equal(t, "（2021年6月10日第十三届全国人民代表大会常务委员会第二十九次会议通过）", got.Description)
	assert.Equal(t, []string{
		"第一章　总则",
		"第一条　为了测试。",
		TableStart,
		"| 名称 | 数值 |",
		"| --- | --- |",
		"| 甲<br>乙 | 1 |",
		TableEnd,
		"第二条　完。",
	}, got.Lines)
}

func TestWordAdapter_DescriptionEndsAtMarker(t *testing.T) {
	body := para("测试法") +
		para("（2021年6月10日通过") +
		para("第一条 内容")

	got, err := NewWordAdapter(statute.Default()).Extract(docx(t, body))
	require.NoError(t, err)

	assert.Equal(t, "（2021年6月10日通过", got.Description)
	assert.Equal(t, []string{"第一条 内容"}, got.Lines)
}

func TestWordAdapter_Invalid(t *testing.T) {
	a := NewWordAdapter(statute.Default())

	_, err := a.Extract([]byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = a.Extract(buf.Bytes())
	assert.Error(t, err)

	_, err = a.Extract(docx(t, para("")))
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestTextAdapter_Extract(t *testing.T) {
	a := NewTextAdapter(statute.Default())

	got, err := a.Extract([]byte("\xef\xbb\xbf中华人民共和国测试法\r\n（2021年6月10日通过）\r\n\r\n第一条 内容\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "中华人民共和国测试法", got.Title)
	assert.Equal(t, "（2021年6月10日通过）", got.Description)
	assert.Equal(t, []string{"第一条 内容"}, got.Lines)

	got, err = a.Extract([]byte("测试法\n第一章 总则\n第一条 内容"))
	require.NoError(t, err)
	assert.Empty(t, got.Description)
	assert.Equal(t, []string{"第一章 总则", "第一条 内容"}, got.Lines)

	_, err = a.Extract([]byte("\n \n"))
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestTextAdapter_GB18030(t *testing.T) {
	encoded, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("测试法\n第一条 内容\n"))
	require.NoError(t, err)

	got, err := NewTextAdapter(statute.Default()).Extract(encoded)
	require.NoError(t, err)
	assert.Equal(t, "测试法", got.Title)
	assert.Equal(t, []string{"第一条 内容"}, got.Lines)
}
