package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/announcement"
)

type announcementRepository struct {
	db *announcementTable
}

var _ announcement.Repository = (*announcementRepository)(nil)

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db.announcement}
}

func (repo *announcementRepository) live() []announcement.Announcement {
	anns := make([]announcement.Announcement, 0, len(repo.db.table))
	for _, ann := range repo.db.table {
		if ann.DeletedAt.Valid {
			continue
		}
		anns = append(anns, *ann)
	}
	sort.SliceStable(anns, func(i, j int) bool { return anns[i].CreatedAt.Before(anns[j].CreatedAt) })
	return anns
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ann.ID = newPK()
	repo.db.table[ann.ID] = &ann
	return ann, nil
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context, filter *announcement.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]announcement.Announcement, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var anns []announcement.Announcement
	for _, ann := range repo.live() {
		if filter != nil {
			if filter.Search != "" && !containsFold(ann.Title, filter.Search) {
				continue
			}
			if filter.CourseID != "" && ann.CourseID != filter.CourseID {
				continue
			}
			if filter.Status != "" && ann.Status != filter.Status {
				continue
			}
			if filter.Target != "" && ann.Target != filter.Target {
				continue
			}
		}
		anns = append(anns, ann)
	}

	total := len(anns)
	lo, hi := paginate(total, page)
	return anns[lo:hi], total, nil
}

func (repo *announcementRepository) GetAnnouncement(ctx context.Context, id string) (announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ann, ok := repo.db.table[id]; ok && !ann.DeletedAt.Valid {
		return *ann, nil
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[ann.ID]
	if !ok || orig.DeletedAt.Valid {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	ann.CreatedAt = orig.CreatedAt
	repo.db.table[ann.ID] = &ann
	return ann, nil
}

func (repo *announcementRepository) DeleteAnnouncementsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if ann, ok := repo.db.table[id]; ok && !ann.DeletedAt.Valid {
			ann.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}
