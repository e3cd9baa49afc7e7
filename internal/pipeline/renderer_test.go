package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/lawparse/internal/model"
)

func sampleRecord() *model.Record {
	intro := "序　言"
	return &model.Record{
		ID:          "law-1",
		Title:       "中华人民共和国测试法",
		Level:       "法律",
		PublishDate: "2021-06-10",
		Header:      []string{"2021年6月10日 通过", "2021年9月1日 施行"},
		Intro:       &intro,
		IntroText:   "为了测试。",
		Markers:     []string{"chapter", "section", "article"},
		Structure: []model.Chapter{{
			Title: "第一章 总则",
			Sections: []model.Section{
				{Articles: []model.Article{{Title: "第一条", Context: "甲。"}}},
				{Title: "第一节 一般规定", Articles: []model.Article{{Title: "第二条", Context: "表格<br>内容"}}},
			},
		}},
	}
}

func TestRenderer_OutputPath(t *testing.T) {
	r := NewRenderer(model.OutputConfig{}, nil)

	rec := sampleRecord()
	assert.Equal(t, filepath.Join("法律", "行政法", "测试法(2021-06-10).md"), r.OutputPath(rec, "行政法"))
	assert.Equal(t, filepath.Join("法律", "测试法(2021-06-10).md"), r.OutputPath(rec, ""))

	rec = &model.Record{Title: "关于a/b的规定"}
	assert.Equal(t, "关于a_b的规定.md", r.OutputPath(rec, ""))
}

func TestRenderer_Markdown(t *testing.T) {
	r := NewRenderer(model.OutputConfig{}, nil)

	want := "# 中华人民共和国测试法\n\n" +
		"> 2021年6月10日 通过\n>\n> 2021年9月1日 施行\n\n" +
		"## 序　言\n\n" +
		"为了测试。\n\n" +
		"## 第一章 总则\n\n" +
		"**第一条** 甲。\n\n" +
		"### 第一节 一般规定\n\n" +
		"**第二条** 表格<br>内容\n"
	assert.Equal(t, want, r.Markdown(sampleRecord()))
}

func TestRenderer_MarkdownSectionsWithoutChapters(t *testing.T) {
	r := NewRenderer(model.OutputConfig{}, nil)
	rec := &model.Record{
		Title:   "某条例",
		Markers: []string{"section", "article"},
		Structure: []model.Chapter{{
			Sections: []model.Section{{Title: "第一节 通则", Articles: []model.Article{{Title: "第一条"}}}},
		}},
	}

	assert.Equal(t, "# 某条例\n\n## 第一节 通则\n\n**第一条**\n", r.Markdown(rec))

	// records loaded from the store carry no inventory
	rec.Markers = nil
	assert.Contains(t, r.Markdown(rec), "\n## 第一节 通则\n")
}

func TestRenderer_Write(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(model.OutputConfig{Dir: dir, JSON: true, Markdown: true}, nil)

	paths, err := r.Write(sampleRecord(), "")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "法律", "测试法(2021-06-10).json"), paths[0])
	assert.Equal(t, filepath.Join(dir, "法律", "测试法(2021-06-10).md"), paths[1])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "表格<br>内容")

	var decoded model.Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "law-1", decoded.ID)
	assert.Equal(t, 2, decoded.ArticleCount())
}

func TestRenderer_WriteDisabled(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(model.OutputConfig{Dir: dir}, nil)

	paths, err := r.Write(sampleRecord(), "")
	require.NoError(t, err)
	assert.Empty(t, paths)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
