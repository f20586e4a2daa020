// Package recordmap はページ本文のブロックツリー（レコードマップ）を組み立てる。
//
// レコードマップはブロックレンダラが前提とする形式で、名前空間ごとに
// IDからレコードへの対応を持つ。主経路はnotion.soのWeb APIから直接取得し、
// 失敗した場合は公開APIのページ・ブロックから同じ形を再構築する。
package recordmap

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hitoshi/portfolio/internal/notion"
)

// RoleReader は読み取り専用レコードのロール。
const RoleReader = "reader"

// Record はレコードマップの1エントリ。
type Record struct {
	Role  string          `json:"role"`
	Value json.RawMessage `json:"value"`
}

// BlockValue はblock名前空間のレコード値のうち、本サービスが読み書きするフィールド。
type BlockValue struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Properties     map[string]any `json:"properties,omitempty"`
	Format         map[string]any `json:"format,omitempty"`
	Content        []string       `json:"content,omitempty"`
	ParentID       string         `json:"parent_id,omitempty"`
	ParentTable    string         `json:"parent_table,omitempty"`
	Alive          bool           `json:"alive"`
	CreatedTime    int64          `json:"created_time,omitempty"`
	LastEditedTime int64          `json:"last_edited_time,omitempty"`
}

// RecordMap はページのブロックツリー。どちらの経路で組み立てても同じ形になり、
// 全名前空間が（空であっても）存在する。
type RecordMap struct {
	Block           map[string]Record          `json:"block"`
	Collection      map[string]Record          `json:"collection"`
	CollectionView  map[string]Record          `json:"collection_view"`
	NotionUser      map[string]Record          `json:"notion_user"`
	CollectionQuery map[string]json.RawMessage `json:"collection_query"`
	SignedURLs      map[string]string          `json:"signed_urls"`
	Discussion      map[string]Record          `json:"discussion"`
	Comment         map[string]Record          `json:"comment"`
}

// New は全名前空間が空のRecordMapを返す。
func New() *RecordMap {
	m := &RecordMap{}
	m.ensureNamespaces()
	return m
}

func (m *RecordMap) ensureNamespaces() {
	if m.Block == nil {
		m.Block = make(map[string]Record)
	}
	if m.Collection == nil {
		m.Collection = make(map[string]Record)
	}
	if m.CollectionView == nil {
		m.CollectionView = make(map[string]Record)
	}
	if m.NotionUser == nil {
		m.NotionUser = make(map[string]Record)
	}
	if m.CollectionQuery == nil {
		m.CollectionQuery = make(map[string]json.RawMessage)
	}
	if m.SignedURLs == nil {
		m.SignedURLs = make(map[string]string)
	}
	if m.Discussion == nil {
		m.Discussion = make(map[string]Record)
	}
	if m.Comment == nil {
		m.Comment = make(map[string]Record)
	}
}

// PutBlock はブロックをハイフンあり・なしの両方のキーで登録する。
// 値のIDはハイフンあり形式に揃える。
func (m *RecordMap) PutBlock(v BlockValue) error {
	v.ID = notion.NormalizeID(v.ID)
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode block %s: %w", v.ID, err)
	}
	rec := Record{Role: RoleReader, Value: raw}
	m.Block[v.ID] = rec
	if compact := notion.CompactID(v.ID); compact != v.ID {
		m.Block[compact] = rec
	}
	return nil
}

// Lookup はIDの表記（ハイフンあり・なし・大文字小文字）を問わずブロックを返す。
func (m *RecordMap) Lookup(id string) (Record, bool) {
	if m == nil {
		return Record{}, false
	}
	for _, key := range []string{id, notion.NormalizeID(id), notion.CompactID(id)} {
		if rec, ok := m.Block[key]; ok {
			return rec, true
		}
	}
	return Record{}, false
}

// LookupBlock はLookupしたレコードの値をBlockValueとしてデコードする。
func (m *RecordMap) LookupBlock(id string) (BlockValue, bool) {
	rec, ok := m.Lookup(id)
	if !ok {
		return BlockValue{}, false
	}
	var v BlockValue
	if err := json.Unmarshal(rec.Value, &v); err != nil {
		return BlockValue{}, false
	}
	return v, true
}

// BlockIDs は一意なブロックIDを辞書順で返す。
// 同じ値を指すハイフンなしのキーは数えない。
func (m *RecordMap) BlockIDs() []string {
	seen := make(map[string]bool, len(m.Block))
	ids := make([]string, 0, len(m.Block))
	for key := range m.Block {
		id := notion.NormalizeID(key)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// merge はotherのエントリをmに追加する。既存のキーは上書きする。
func (m *RecordMap) merge(other *RecordMap) {
	if other == nil {
		return
	}
	other.ensureNamespaces()
	for k, v := range other.Block {
		m.Block[k] = v
	}
	for k, v := range other.Collection {
		m.Collection[k] = v
	}
	for k, v := range other.CollectionView {
		m.CollectionView[k] = v
	}
	for k, v := range other.NotionUser {
		m.NotionUser[k] = v
	}
	for k, v := range other.CollectionQuery {
		m.CollectionQuery[k] = v
	}
	for k, v := range other.SignedURLs {
		m.SignedURLs[k] = v
	}
	for k, v := range other.Discussion {
		m.Discussion[k] = v
	}
	for k, v := range other.Comment {
		m.Comment[k] = v
	}
}
