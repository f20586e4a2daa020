package content

import (
	"context"
	"testing"

	"github.com/hitoshi/portfolio/internal/notion"
)

func imagePage(id, date string) notion.Page {
	p := titledPage(id, id)
	p.Properties["Image"] = notion.Property{Type: notion.PropertyTypeFiles, Files: []notion.FileObject{
		{Type: "external", External: &notion.ExternalFile{URL: "https://images.example.com/" + id + ".jpg"}},
	}}
	if date != "" {
		p.Properties["Date"] = notion.Property{Type: notion.PropertyTypeDate, Date: &notion.DateValue{Start: date}}
	}
	return p
}

func TestListGallery_DropsRowsWithoutImage(t *testing.T) {
	q := &mockQuerier{queryFn: func(req notion.QueryRequest, _ int) ([]notion.Page, error) {
		if len(req.Sorts) != 1 || req.Sorts[0].Property != "Date" {
			t.Errorf("sorts = %+v, want Date", req.Sorts)
		}
		return []notion.Page{imagePage("a", "2024-01-01"), titledPage("no-image", "x"), imagePage("b", "2024-02-01")}, nil
	}}
	svc, _ := newTestService(q, nil)

	items := svc.ListGallery(context.Background(), 0)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ID != "b" {
		t.Errorf("items[0] = %s, want newest first", items[0].ID)
	}
	if q.limits[0] != DefaultCollectionLimit {
		t.Errorf("limit = %d, want %d", q.limits[0], DefaultCollectionLimit)
	}
}

func TestListGallery_SortMismatchRetriesUnsorted(t *testing.T) {
	q := &mockQuerier{queryFn: func(req notion.QueryRequest, _ int) ([]notion.Page, error) {
		if len(req.Sorts) > 0 {
			return nil, missingProperty("sort", "Date")
		}
		return []notion.Page{imagePage("a", "")}, nil
	}}
	rec := &fallbackRecorder{}
	svc, _ := newTestService(q, rec)

	if items := svc.ListGallery(context.Background(), 10); len(items) != 1 {
		t.Errorf("len(items) = %d, want 1", len(items))
	}
	if len(q.requests) != 2 {
		t.Errorf("クエリ回数 = %d, want 2", len(q.requests))
	}
	if len(rec.steps) != 1 || rec.steps[0] != "gallery:unsorted" {
		t.Errorf("fallbacks = %v", rec.steps)
	}
}

func TestListForFriends_FailureReturnsEmpty(t *testing.T) {
	q := &mockQuerier{queryFn: func(notion.QueryRequest, int) ([]notion.Page, error) {
		return nil, &notion.APIError{Status: 500, Code: "internal_server_error", Message: "boom"}
	}}
	rec := &fallbackRecorder{}
	svc, _ := newTestService(q, rec)

	items := svc.ListForFriends(context.Background(), 10)
	if items == nil || len(items) != 0 {
		t.Errorf("items = %#v, want empty non-nil slice", items)
	}
	if len(rec.steps) != 1 || rec.steps[0] != "for_friends:empty" {
		t.Errorf("fallbacks = %v, want [for_friends:empty]", rec.steps)
	}
}

func TestListProjects_OrderedByOrderThenName(t *testing.T) {
	num := func(n float64) notion.Property {
		return notion.Property{Type: notion.PropertyTypeNumber, Number: &n}
	}
	first := titledPage("p1", "Zeta")
	first.Properties["Order"] = num(1)
	second := titledPage("p2", "Alpha")

	q := &mockQuerier{queryFn: func(req notion.QueryRequest, _ int) ([]notion.Page, error) {
		if len(req.Sorts) == 1 && req.Sorts[0].Direction != notion.SortAscending {
			t.Errorf("direction = %s, want ascending", req.Sorts[0].Direction)
		}
		return []notion.Page{second, first}, nil
	}}
	svc, _ := newTestService(q, nil)

	projects := svc.ListProjects(context.Background(), 10)
	if len(projects) != 2 || projects[0].Name != "Zeta" || projects[1].Name != "Alpha" {
		t.Errorf("projects = %+v, want ordered project first", projects)
	}
}

func TestListProjects_ContextErrorReturnsEmpty(t *testing.T) {
	q := &mockQuerier{queryFn: func(notion.QueryRequest, int) ([]notion.Page, error) {
		return nil, context.Canceled
	}}
	svc, _ := newTestService(q, nil)

	if projects := svc.ListProjects(context.Background(), 10); len(projects) != 0 {
		t.Errorf("projects = %v, want empty", projects)
	}
}
