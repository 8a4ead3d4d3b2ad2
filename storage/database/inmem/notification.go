package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, notifs []notification.Notification) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.FailCreate != nil {
		if err := repo.db.FailCreate(notifs); err != nil {
			return 0, err
		}
	}

	for i := range notifs {
		notif := notifs[i]
		notif.ID = newPK()
		repo.db.table[notif.ID] = &notif
	}
	return len(notifs), nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, recipientID string, filter *notification.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]notification.Notification, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	now := time.Now().UTC()
	var notifs []notification.Notification
	for _, notif := range repo.db.table {
		if notif.DeletedAt.Valid || notif.RecipientID != recipientID {
			continue
		}
		if notif.ExpiresAt.Valid && !notif.ExpiresAt.Time.After(now) {
			continue
		}
		if filter != nil {
			if filter.Search != "" && !containsFold(notif.Message, filter.Search) {
				continue
			}
			if filter.Kind != "" && notif.Kind != filter.Kind {
				continue
			}
			if filter.IsRead != nil && notif.IsRead != *filter.IsRead {
				continue
			}
		}
		notifs = append(notifs, *notif)
	}
	// newest first, as the API serves them
	sort.SliceStable(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })

	total := len(notifs)
	lo, hi := paginate(total, page)
	return notifs[lo:hi], total, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if notif, ok := repo.db.table[id]; ok && !notif.DeletedAt.Valid {
		return *notif, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) MarkNotificationsRead(ctx context.Context, recipientID string, readAt time.Time, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		notif, ok := repo.db.table[id]
		if !ok || notif.DeletedAt.Valid || notif.RecipientID != recipientID || notif.IsRead {
			continue
		}
		notif.IsRead = true
		notif.ReadAt.SetValid(readAt)
		notif.UpdatedAt = readAt
		cnt++
	}
	return cnt, nil
}

func (repo *notificationRepository) DeleteNotificationsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if notif, ok := repo.db.table[id]; ok && !notif.DeletedAt.Valid {
			notif.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}
