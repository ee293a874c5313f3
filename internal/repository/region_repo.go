package repository

import (
	"context"

	"gorm.io/gorm"

	"elevtinget/backend/internal/model"
)

// RegionRepository 地区数据访问接口
type RegionRepository interface {
	GetOrCreate(ctx context.Context, name string) (*model.Region, error)
	List(ctx context.Context) ([]model.Region, error)
}

type regionRepo struct {
	db *gorm.DB
}

// NewRegionRepo 创建 RegionRepository 实例
func NewRegionRepo(db *gorm.DB) RegionRepository {
	return &regionRepo{db: db}
}

func (r *regionRepo) GetOrCreate(ctx context.Context, name string) (*model.Region, error) {
	region := model.Region{Name: name}
	err := r.db.WithContext(ctx).
		Where(model.Region{Name: name}).
		FirstOrCreate(&region).Error
	if err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *regionRepo) List(ctx context.Context) ([]model.Region, error) {
	var regions []model.Region
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

// OrganizationRepository 组织数据访问接口
type OrganizationRepository interface {
	GetOrCreate(ctx context.Context, name string, regionID *string) (*model.Organization, error)
}

type organizationRepo struct {
	db *gorm.DB
}

// NewOrganizationRepo 创建 OrganizationRepository 实例
func NewOrganizationRepo(db *gorm.DB) OrganizationRepository {
	return &organizationRepo{db: db}
}

func (r *organizationRepo) GetOrCreate(ctx context.Context, name string, regionID *string) (*model.Organization, error) {
	org := model.Organization{Name: name, RegionID: regionID}
	err := r.db.WithContext(ctx).
		Where(model.Organization{Name: name}).
		Attrs(model.Organization{RegionID: regionID}).
		FirstOrCreate(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}
