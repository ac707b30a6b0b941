package model

import "fmt"

// VectorKind 向量类型
type VectorKind string

const (
	VectorTitle    VectorKind = "title"
	VectorSynopsis VectorKind = "synopsis"
	VectorCombined VectorKind = "combined"
)

// VectorKinds 所有向量类型，顺序固定
var VectorKinds = []VectorKind{VectorTitle, VectorSynopsis, VectorCombined}

// vectorColumns 向量类型到列名的白名单，拼接 SQL 时只能取这里的值
var vectorColumns = map[VectorKind]string{
	VectorTitle:    "title_vector",
	VectorSynopsis: "synopsis_vector",
	VectorCombined: "combined_vector",
}

// ParseVectorKind 解析向量类型
func ParseVectorKind(s string) (VectorKind, error) {
	kind := VectorKind(s)
	if _, ok := vectorColumns[kind]; !ok {
		return "", fmt.Errorf("unknown vector type %q", s)
	}
	return kind, nil
}

// Column 返回向量类型对应的列名
func (k VectorKind) Column() (string, bool) {
	col, ok := vectorColumns[k]
	return col, ok
}

func (k VectorKind) String() string {
	return string(k)
}
