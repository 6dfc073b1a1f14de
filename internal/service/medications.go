package service

import (
	"sync"

	"healthguard/internal/models"
)

// MedicationCache holds the last medication list loaded from the backend.
type MedicationCache struct {
	mu   sync.RWMutex
	meds []models.Medication
}

func NewMedicationCache() *MedicationCache {
	return &MedicationCache{}
}

// Medications returns a copy of the cached list.
func (c *MedicationCache) Medications() []models.Medication {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Medication, len(c.meds))
	copy(out, c.meds)
	return out
}

func (c *MedicationCache) Replace(meds []models.Medication) {
	c.mu.Lock()
	c.meds = append([]models.Medication(nil), meds...)
	c.mu.Unlock()
}

// Put replaces the cached medication with the same id, or appends it.
func (c *MedicationCache) Put(med models.Medication) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.meds {
		if c.meds[i].ID == med.ID {
			c.meds[i] = med
			return
		}
	}
	c.meds = append(c.meds, med)
}

// Remove drops the medication and returns it when it was cached.
func (c *MedicationCache) Remove(id int64) (models.Medication, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.meds {
		if m.ID == id {
			c.meds = append(c.meds[:i:i], c.meds[i+1:]...)
			return m, true
		}
	}
	return models.Medication{}, false
}
