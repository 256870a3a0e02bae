package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"
	repo "foodorder/internal/repository"

	"github.com/samber/lo"
)

type MenuUsecase struct {
	menu repo.MenuRepository
	log  logging.Logger
}

// DI
func NewMenuUsecase(menu repo.MenuRepository, log logging.Logger) *MenuUsecase {
	return &MenuUsecase{menu: menu, log: log}
}

// GET /menu の1カテゴリ分
type MenuCategory struct {
	Category string           `json:"category"`
	Items    []model.MenuItem `json:"items"`
}

// 提供中の品目をカテゴリ名順にまとめる。カテゴリ内は取得順。
func (u *MenuUsecase) List(ctx context.Context) ([]MenuCategory, error) {
	items, err := u.menu.ListAvailable(ctx)
	if err != nil {
		u.log.Errorf("menu: list failed: %v", err)
		return []MenuCategory{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	grouped := lo.GroupBy(items, func(m model.MenuItem) string { return m.Category })
	names := lo.Keys(grouped)
	sort.Strings(names)

	return lo.Map(names, func(name string, _ int) MenuCategory {
		return MenuCategory{Category: name, Items: grouped[name]}
	}), nil
}

func (u *MenuUsecase) Get(ctx context.Context, id string) (model.MenuItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.MenuItem{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	m, err := u.menu.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.MenuItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.MenuItem{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//売り切れも詳細は見せる
	return m, nil
}
