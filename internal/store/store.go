// Package store is the narrow data-access layer for the conversation core.
// It exposes fetch-by-id, fetch-by-parent, count and upsert operations over
// the gorm schema; no query construction leaks past this package.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mkale/sitewalk/internal/models"
)

// ErrNotFound is returned when a fetched record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps a gorm DB with the narrow operations the core needs.
type Store struct {
	db *gorm.DB
}

// New creates a Store.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &Store{db: db}, nil
}

// --- inspectors ---

// InspectorByChatUser resolves the inspector bound to a chat-platform user.
func (s *Store) InspectorByChatUser(chatUserID string) (*models.Inspector, error) {
	var insp models.Inspector
	err := s.db.Where("chat_user_id = ?", chatUserID).First(&insp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: inspector by chat user %q: %w", chatUserID, err)
	}
	return &insp, nil
}

// --- work orders ---

// OpenWorkOrders lists OPEN and IN_PROGRESS work orders for an inspector,
// oldest first.
func (s *Store) OpenWorkOrders(inspectorID uint) ([]models.WorkOrder, error) {
	var orders []models.WorkOrder
	err := s.db.Where("inspector_id = ? AND status IN ?",
		inspectorID, []string{models.StatusOpen, models.StatusInProgress}).
		Order("id").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("store: open work orders: %w", err)
	}
	return orders, nil
}

// WorkOrder fetches one work order by id.
func (s *Store) WorkOrder(id uint) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	err := s.db.First(&wo, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: work order %d: %w", id, err)
	}
	return &wo, nil
}

// SetWorkOrderStatus updates a work order's status.
func (s *Store) SetWorkOrderStatus(id uint, status string) error {
	err := s.db.Model(&models.WorkOrder{}).Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("store: set work order %d status: %w", id, err)
	}
	return nil
}

// --- checklist items (locations) ---

// ItemsByWorkOrder lists a work order's items in sequence order.
func (s *Store) ItemsByWorkOrder(workOrderID uint) ([]models.ChecklistItem, error) {
	var items []models.ChecklistItem
	err := s.db.Where("work_order_id = ?", workOrderID).
		Order("sequence, id").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("store: items for work order %d: %w", workOrderID, err)
	}
	return items, nil
}

// Item fetches one checklist item by id.
func (s *Store) Item(id uint) (*models.ChecklistItem, error) {
	var item models.ChecklistItem
	err := s.db.First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: item %d: %w", id, err)
	}
	return &item, nil
}

// SetItemStatus updates a checklist item's status.
func (s *Store) SetItemStatus(id uint, status string) error {
	err := s.db.Model(&models.ChecklistItem{}).Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("store: set item %d status: %w", id, err)
	}
	return nil
}

// CountIncompleteItems counts a work order's items not yet COMPLETED.
func (s *Store) CountIncompleteItems(workOrderID uint) (int64, error) {
	var n int64
	err := s.db.Model(&models.ChecklistItem{}).
		Where("work_order_id = ? AND status != ?", workOrderID, models.StatusCompleted).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("store: count incomplete items: %w", err)
	}
	return n, nil
}

// --- checklist locations (sub-locations) ---

// LocationsByItem lists an item's sub-locations in sequence order.
func (s *Store) LocationsByItem(itemID uint) ([]models.ChecklistLocation, error) {
	var locs []models.ChecklistLocation
	err := s.db.Where("item_id = ?", itemID).
		Order("sequence, id").Find(&locs).Error
	if err != nil {
		return nil, fmt.Errorf("store: locations for item %d: %w", itemID, err)
	}
	return locs, nil
}

// Location fetches one sub-location by id.
func (s *Store) Location(id uint) (*models.ChecklistLocation, error) {
	var loc models.ChecklistLocation
	err := s.db.First(&loc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: location %d: %w", id, err)
	}
	return &loc, nil
}

// SetLocationStatus updates a sub-location's status.
func (s *Store) SetLocationStatus(id uint, status string) error {
	err := s.db.Model(&models.ChecklistLocation{}).Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("store: set location %d status: %w", id, err)
	}
	return nil
}

// CountIncompleteLocations counts an item's sub-locations not yet COMPLETED.
func (s *Store) CountIncompleteLocations(itemID uint) (int64, error) {
	var n int64
	err := s.db.Model(&models.ChecklistLocation{}).
		Where("item_id = ? AND status != ?", itemID, models.StatusCompleted).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("store: count incomplete locations: %w", err)
	}
	return n, nil
}

// --- tasks ---

// TasksByLocation lists a sub-location's tasks in sequence order.
func (s *Store) TasksByLocation(locationID uint) ([]models.ChecklistTask, error) {
	var tasks []models.ChecklistTask
	err := s.db.Where("location_id = ?", locationID).
		Order("sequence, id").Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("store: tasks for location %d: %w", locationID, err)
	}
	return tasks, nil
}

// TasksByItem lists the tasks directly under an item (no sub-location).
func (s *Store) TasksByItem(itemID uint) ([]models.ChecklistTask, error) {
	var tasks []models.ChecklistTask
	err := s.db.Where("item_id = ? AND location_id IS NULL", itemID).
		Order("sequence, id").Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("store: tasks for item %d: %w", itemID, err)
	}
	return tasks, nil
}

// Task fetches one task by id.
func (s *Store) Task(id uint) (*models.ChecklistTask, error) {
	var task models.ChecklistTask
	err := s.db.First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: task %d: %w", id, err)
	}
	return &task, nil
}

// SetTaskCondition persists a task's condition and moves it IN_PROGRESS.
func (s *Store) SetTaskCondition(taskID uint, cond string) error {
	err := s.db.Model(&models.ChecklistTask{}).Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"condition": cond,
			"status":    models.StatusInProgress,
		}).Error
	if err != nil {
		return fmt.Errorf("store: set task %d condition: %w", taskID, err)
	}
	return nil
}

// SetTaskStatus updates a task's status.
func (s *Store) SetTaskStatus(taskID uint, status string) error {
	err := s.db.Model(&models.ChecklistTask{}).Where("id = ?", taskID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("store: set task %d status: %w", taskID, err)
	}
	return nil
}
