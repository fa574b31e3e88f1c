package myqueue

import (
	"context"
	"fmt"
	"os"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	grpcCodes "google.golang.org/grpc/codes"
	grpcStatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/MarcGrol/manualcheckout/lib/mylog"
)

const dispatchDelay = 2 * time.Second

// gcloudTaskQueue dispatches triggers through Cloud Tasks; a task named after the envelope is created at most once
type gcloudTaskQueue struct {
	client    *cloudtasks.Client
	queuePath string
	logger    mylog.Logger
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		New = newGcloudQueue
	}
}

func newGcloudQueue(c context.Context) (TaskQueuer, func(), error) {
	cloudTaskClient, err := cloudtasks.NewClient(c)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating cloudtask-client: %s", err)
	}
	queue := &gcloudTaskQueue{
		client:    cloudTaskClient,
		queuePath: queuePath(os.Getenv("GOOGLE_CLOUD_PROJECT"), os.Getenv("LOCATION_ID"), os.Getenv("QUEUE_NAME")),
		logger:    mylog.New("taskqueue"),
	}
	return queue, func() {
		err := cloudTaskClient.Close()
		if err != nil {
			queue.logger.Log(c, "", mylog.SeverityWarn, "Error closing cloudtask-client: %s", err)
		}
	}, nil
}

func (q *gcloudTaskQueue) Enqueue(c context.Context, task Task) error {
	taskName := q.taskPath(task.UID)
	_, err := q.client.CreateTask(c, &taskspb.CreateTaskRequest{
		Parent: q.queuePath,
		Task: &taskspb.Task{
			Name:         taskName,
			ScheduleTime: timestamppb.New(time.Now().Add(dispatchDelay)),
			MessageType: &taskspb.Task_AppEngineHttpRequest{
				AppEngineHttpRequest: &taskspb.AppEngineHttpRequest{
					HttpMethod:  taskspb.HttpMethod_PUT,
					RelativeUri: task.WebhookURLPath,
					Body:        task.Payload,
				},
			},
			View: taskspb.Task_FULL,
		},
	})
	if err != nil {
		if grpcStatus.Code(err) == grpcCodes.AlreadyExists {
			q.logger.Log(c, task.UID, mylog.SeverityInfo, "Trigger %s was already queued", taskName)
			return nil
		}
		return fmt.Errorf("error queueing trigger %s: %w", taskName, err)
	}
	return nil
}

func queuePath(project string, location string, queueName string) string {
	if queueName == "" {
		queueName = "default"
	}
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", project, location, queueName)
}

func (q *gcloudTaskQueue) taskPath(taskUID string) string {
	return fmt.Sprintf("%s/tasks/%s", q.queuePath, taskUID)
}

// IsLastAttempt reports how often the trigger was dispatched and the queue's retry limit (-1 when unknown)
func (q *gcloudTaskQueue) IsLastAttempt(c context.Context, taskUID string) (int32, int32) {
	maxAttempts := int32(-1)

	queue, err := q.client.GetQueue(c, &taskspb.GetQueueRequest{Name: q.queuePath})
	if err != nil {
		q.logger.Log(c, taskUID, mylog.SeverityWarn, "Error fetching queue %s: %s", q.queuePath, err)
		return 0, maxAttempts
	}
	if queue.GetRetryConfig() != nil {
		maxAttempts = queue.GetRetryConfig().GetMaxAttempts()
	}

	task, err := q.client.GetTask(c, &taskspb.GetTaskRequest{Name: q.taskPath(taskUID)})
	if err != nil {
		q.logger.Log(c, taskUID, mylog.SeverityWarn, "Error fetching trigger %s: %s", taskUID, err)
		return 0, maxAttempts
	}

	return task.GetDispatchCount(), maxAttempts
}
