package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/storage"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"gorm.io/gorm"
)

// ---- 内存版 FileRepository ----

type fakeFileRepo struct {
	mu     sync.Mutex
	nextID uint64
	files  map[uint64]*models.File
	logs   map[uint64][]models.FileAccessLog

	createErr     error  // 注入 Create 的失败
	dupOnce       bool   // 首次 Create 返回密钥冲突
	afterFindByID func() // FindByID 返回快照后、调用方写回前触发，模拟并发写
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{
		nextID: 1,
		files:  make(map[uint64]*models.File),
		logs:   make(map[uint64][]models.FileAccessLog),
	}
}

func (r *fakeFileRepo) Create(file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.dupOnce {
		r.dupOnce = false
		return xerr.ErrDuplicateKey
	}
	for _, f := range r.files {
		if f.KeyHash == file.KeyHash {
			return xerr.ErrDuplicateKey
		}
	}
	file.ID = r.nextID
	r.nextID++
	file.CreatedAt = time.Now()
	r.files[file.ID] = file
	return nil
}

func (r *fakeFileRepo) FindByID(id uint64) (*models.File, error) {
	r.mu.Lock()
	f, ok := r.files[id]
	var snapshot *models.File
	if ok {
		copied := *f
		snapshot = &copied
	}
	hook := r.afterFindByID
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if snapshot == nil {
		return nil, nil
	}
	return snapshot, nil
}

func (r *fakeFileRepo) FindByKeyHash(keyHash string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.KeyHash == keyHash {
			copied := *f
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeFileRepo) FindAllByUserID(userID uint64, page, pageSize int) ([]models.File, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.File
	for _, f := range r.files {
		if f.UserID == userID {
			result = append(result, *f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, int64(len(result)), nil
}

func (r *fakeFileRepo) FindAccessible(now time.Time, page, pageSize int) ([]models.File, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.File
	for _, f := range r.files {
		if f.IsAccessible(now) {
			result = append(result, *f)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeFileRepo) FindExpired(now time.Time, limit int) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.File
	for _, f := range r.files {
		if !now.Before(f.ExpiresAt) {
			result = append(result, *f)
		}
	}
	return result, nil
}

func (r *fakeFileRepo) UpdateMetadata(file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.files[file.ID]
	if !ok {
		return xerr.ErrFileNotFound
	}
	// 与真实实现一致：只写元数据列
	stored.FileName = file.FileName
	stored.Description = file.Description
	stored.Category = file.Category
	stored.ExpiresAt = file.ExpiresAt
	stored.Password = file.Password
	return nil
}

func (r *fakeFileRepo) MarkRevoked(fileID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.files[fileID]
	if !ok {
		return xerr.ErrFileNotFound
	}
	stored.IsRevoked = true
	return nil
}

func (r *fakeFileRepo) RecordAccess(ctx context.Context, fileID uint64, ip string, accessedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[fileID]
	if !ok {
		return xerr.ErrFileNotFound
	}
	r.logs[fileID] = append(r.logs[fileID], models.FileAccessLog{FileID: fileID, IP: ip, AccessedAt: accessedAt})
	f.DownloadCount++
	return nil
}

func (r *fakeFileRepo) Delete(ctx context.Context, fileID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[fileID]; !ok {
		return xerr.ErrFileNotFound
	}
	delete(r.files, fileID)
	delete(r.logs, fileID)
	return nil
}

func (r *fakeFileRepo) accessLogCount(fileID uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs[fileID])
}

// ---- 内存版 UserRepository ----

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint64]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint64]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) CreateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUserByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUserByID(id uint64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *fakeUserRepo) UpdatePasswordHash(userID uint64, hash string) error { return nil }

func (r *fakeUserRepo) UpdateEmail(userID uint64, email string) error { return nil }

func (r *fakeUserRepo) ReserveSpace(userID uint64, bytes uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return xerr.ErrUserNotFound
	}
	if u.UsedSpace+bytes > u.TotalSpace {
		return xerr.ErrQuotaExceeded
	}
	u.UsedSpace += bytes
	return nil
}

func (r *fakeUserRepo) ReleaseSpace(userID uint64, bytes uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return xerr.ErrUserNotFound
	}
	if u.UsedSpace < bytes {
		u.UsedSpace = 0
		return nil
	}
	u.UsedSpace -= bytes
	return nil
}

func (r *fakeUserRepo) usedSpace(userID uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID].UsedSpace
}

// ---- 内存版 StorageService ----

var errObjectNotFound = errors.New("object not found")

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr    error // 注入 PutObject 的失败
	removeErr error // 注入 RemoveObject 的失败
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func objectKey(bucketName, objectName string) string {
	return bucketName + "/" + objectName
}

func (s *fakeStorage) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (storage.PutObjectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return storage.PutObjectResult{}, s.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return storage.PutObjectResult{}, err
	}
	s.objects[objectKey(bucketName, objectName)] = data
	return storage.PutObjectResult{Bucket: bucketName, Key: objectName, Size: int64(len(data))}, nil
}

func (s *fakeStorage) GetObject(ctx context.Context, bucketName, objectName string) (storage.GetObjectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectKey(bucketName, objectName)]
	if !ok {
		return storage.GetObjectResult{}, errObjectNotFound
	}
	return storage.GetObjectResult{
		Reader: io.NopCloser(bytes.NewReader(data)),
		Size:   int64(len(data)),
	}, nil
}

func (s *fakeStorage) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	key := objectKey(bucketName, objectName)
	if _, ok := s.objects[key]; !ok {
		return errObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) IsBucketExist(ctx context.Context, bucketName string) (bool, error) {
	return true, nil
}

func (s *fakeStorage) MakeBucket(ctx context.Context, bucketName string) error {
	return nil
}

func (s *fakeStorage) GetObjectURL(bucketName, objectName string) string {
	return "fake://" + objectKey(bucketName, objectName)
}

func (s *fakeStorage) PresignedGetURL(ctx context.Context, bucketName, objectName, fileName string, expiry time.Duration) (string, error) {
	return "fake://" + objectKey(bucketName, objectName) + "?signed=1", nil
}

func (s *fakeStorage) IsNotFound(err error) bool {
	return errors.Is(err, errObjectNotFound)
}

func (s *fakeStorage) objectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// ---- 内存版 TaskPublisher ----

type fakePublisher struct {
	mu         sync.Mutex
	published  map[string][][]byte
	publishErr error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(map[string][][]byte)}
}

func (p *fakePublisher) Publish(queueName string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.published[queueName] = append(p.published[queueName], body)
	return nil
}
