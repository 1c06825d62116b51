package event

import (
	"jobflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	EventPersistCreateFunc = EventPersistCreate

	// InvokeHandlersFunc is called after the surrounding transaction commits.
	// nil when no handler is registered.
	InvokeHandlersFunc func(record *EventRecord)
)

// CreateEvent persists an event record in the same transaction as the
// mutation it describes.
func CreateEvent(sourceType string, sourceId types.ID, sourceDesc string, category EventCategory,
	updatedProperties []UpdatedProperty, identity *session.Identity, db *gorm.DB) (*EventRecord, error) {

	record := EventRecord{
		Event: Event{
			SourceType: sourceType,
			SourceId:   sourceId,
			SourceDesc: sourceDesc,

			EventCategory:     category,
			UpdatedProperties: updatedProperties,

			CreatorId:   identity.ID,
			CreatorName: identity.Name,
		},
		Timestamp: types.CurrentTimestamp(),
	}
	if err := EventPersistCreateFunc(&record, db); err != nil {
		return nil, err
	}
	return &record, nil
}

func EventPersistCreate(record *EventRecord, db *gorm.DB) error {
	return db.Create(record).Error
}
